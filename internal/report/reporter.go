package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"humanpad/internal/session"
	"humanpad/internal/storage"
)

// reportThreshold is the community-report count at which a target is
// permanently added to the suspicious set.
const reportThreshold = 3

// Reporter handles community manipulation reports. Reports are not
// deduplicated per reporter: every call counts.
type Reporter struct {
	activity   storage.ActivityStore
	suspicious storage.SuspiciousUserStore
	sessions   *session.Store
	log        *zap.Logger
}

// NewReporter creates a manipulation reporter.
func NewReporter(activity storage.ActivityStore, suspicious storage.SuspiciousUserStore, sessions *session.Store, log *zap.Logger) *Reporter {
	return &Reporter{
		activity:   activity,
		suspicious: suspicious,
		sessions:   sessions,
		log:        log,
	}
}

// ReportSuspicious records one report against targetID and returns the
// target's new report count. Crossing the threshold permanently flags
// the target and attaches the reason to any active session.
func (r *Reporter) ReportSuspicious(ctx context.Context, reporterID, targetID, reason string) (int, error) {
	if reporterID == "" || targetID == "" {
		return 0, storage.ErrInvalidInput
	}

	count, err := r.activity.IncrementCommunityReports(ctx, targetID)
	if err != nil {
		return 0, fmt.Errorf("increment community reports: %w", err)
	}

	r.log.Info("manipulation report recorded",
		zap.String("reporter_id", reporterID),
		zap.String("target_id", targetID),
		zap.String("reason", reason),
		zap.Int("report_count", count))

	if count >= reportThreshold {
		if err := r.suspicious.Add(ctx, targetID); err != nil {
			return count, fmt.Errorf("flag reported user: %w", err)
		}
		r.sessions.AppendFlags(ctx, targetID, reason)
		r.log.Warn("user flagged by community reports",
			zap.String("target_id", targetID),
			zap.Int("report_count", count))
	}

	return count, nil
}

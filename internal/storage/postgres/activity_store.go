package postgres

import (
	"context"
	"fmt"
	"time"

	"humanpad/internal/domain"
	"humanpad/internal/storage"
)

// ActivityStore implements storage.ActivityStore using PostgreSQL.
// Counters are upserted so the row appears on first use.
type ActivityStore struct {
	pool *Pool
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(pool *Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// Get retrieves the counters for a user. Returns ErrNotFound if the
// user has no recorded activity yet.
func (s *ActivityStore) Get(ctx context.Context, userID string) (*domain.ActivityCounters, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT trades_completed, xp, suspicious_activity, community_reports, last_activity
		FROM user_activity
		WHERE user_id = $1
	`

	var c domain.ActivityCounters
	var lastActivity *time.Time
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&c.TradesCompleted,
		&c.XP,
		&c.SuspiciousActivity,
		&c.CommunityReports,
		&lastActivity,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user activity: %w", err)
	}
	if lastActivity != nil {
		c.LastActivity = *lastActivity
	}
	return &c, nil
}

// RecordTrade increments trades_completed and xp and stamps last_activity.
func (s *ActivityStore) RecordTrade(ctx context.Context, userID string, xpGained int, at time.Time) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO user_activity (user_id, trades_completed, xp, last_activity)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			trades_completed = user_activity.trades_completed + 1,
			xp = user_activity.xp + EXCLUDED.xp,
			last_activity = EXCLUDED.last_activity
	`

	if _, err := s.pool.Exec(ctx, query, userID, xpGained, at); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	return nil
}

// IncrementSuspicious bumps the suspicious_activity counter.
func (s *ActivityStore) IncrementSuspicious(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO user_activity (user_id, suspicious_activity)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET
			suspicious_activity = user_activity.suspicious_activity + 1
		RETURNING suspicious_activity
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment suspicious activity: %w", err)
	}
	return count, nil
}

// IncrementCommunityReports bumps the community_reports counter.
func (s *ActivityStore) IncrementCommunityReports(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO user_activity (user_id, community_reports)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET
			community_reports = user_activity.community_reports + 1
		RETURNING community_reports
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment community reports: %w", err)
	}
	return count, nil
}

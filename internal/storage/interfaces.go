package storage

import (
	"context"
	"time"

	"humanpad/internal/domain"
)

// ActivityStore provides access to per-user activity counters.
// Counters only ever increase; reputation is recomputed from them on demand.
type ActivityStore interface {
	// Get retrieves the counters for a user. Returns ErrNotFound if the
	// user has no recorded activity yet.
	Get(ctx context.Context, userID string) (*domain.ActivityCounters, error)

	// RecordTrade increments trades_completed and xp and stamps
	// last_activity. Creates the row on first use.
	RecordTrade(ctx context.Context, userID string, xpGained int, at time.Time) error

	// IncrementSuspicious bumps the suspicious_activity counter and
	// returns the new value. Creates the row on first use.
	IncrementSuspicious(ctx context.Context, userID string) (int, error)

	// IncrementCommunityReports bumps the community_reports counter and
	// returns the new value. Creates the row on first use.
	IncrementCommunityReports(ctx context.Context, userID string) (int, error)
}

// SuspiciousUserStore is the global suspicious-user set.
// Monotonic: there is no removal operation.
type SuspiciousUserStore interface {
	// Add marks a user as suspicious. Idempotent.
	Add(ctx context.Context, userID string) error

	// Contains reports whether a user is in the set.
	Contains(ctx context.Context, userID string) (bool, error)

	// Count returns the set size.
	Count(ctx context.Context) (int, error)

	// List returns all flagged user IDs, sorted ascending.
	List(ctx context.Context) ([]string, error)
}

// TradeEventStore provides access to the executed-trade history.
type TradeEventStore interface {
	// Append adds a new event. Returns ErrDuplicateKey if event_id exists.
	Append(ctx context.Context, e *domain.TradeEvent) error

	// GetByToken retrieves all events for a token, ordered by timestamp ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.TradeEvent, error)

	// GetByUser retrieves all events for a user, ordered by timestamp ASC.
	GetByUser(ctx context.Context, userID string) ([]*domain.TradeEvent, error)

	// GetRecent retrieves the most recent events across all tokens,
	// newest first, capped at limit.
	GetRecent(ctx context.Context, limit int) ([]*domain.TradeEvent, error)
}

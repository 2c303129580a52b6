package postgres

import (
	"context"
	"fmt"

	"humanpad/internal/storage"
)

// SuspiciousUserStore implements storage.SuspiciousUserStore using
// PostgreSQL. The set is add-only; there is no delete path.
type SuspiciousUserStore struct {
	pool *Pool
}

// NewSuspiciousUserStore creates a new SuspiciousUserStore.
func NewSuspiciousUserStore(pool *Pool) *SuspiciousUserStore {
	return &SuspiciousUserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SuspiciousUserStore = (*SuspiciousUserStore)(nil)

// Add marks a user as suspicious. Idempotent.
func (s *SuspiciousUserStore) Add(ctx context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO suspicious_users (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("add suspicious user: %w", err)
	}
	return nil
}

// Contains reports whether a user is in the set.
func (s *SuspiciousUserStore) Contains(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM suspicious_users WHERE user_id = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check suspicious user: %w", err)
	}
	return exists, nil
}

// Count returns the set size.
func (s *SuspiciousUserStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suspicious_users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count suspicious users: %w", err)
	}
	return count, nil
}

// List returns all flagged user IDs, sorted ascending.
func (s *SuspiciousUserStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM suspicious_users ORDER BY user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list suspicious users: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan suspicious user: %w", err)
		}
		result = append(result, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suspicious users: %w", err)
	}
	return result, nil
}

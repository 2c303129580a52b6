package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	red "github.com/redis/go-redis/v9"

	"humanpad/internal/storage"
)

const defaultSuspiciousKey = "suspicious:users"

// SuspiciousUserStore implements storage.SuspiciousUserStore on a
// Redis set, so multiple instances share one flag space. Add-only.
type SuspiciousUserStore struct {
	client *red.Client
	key    string
}

// NewSuspiciousUserStore constructs a Redis-backed suspicious-user set.
func NewSuspiciousUserStore(client *red.Client, key string) *SuspiciousUserStore {
	k := strings.TrimSpace(key)
	if k == "" {
		k = defaultSuspiciousKey
	}
	return &SuspiciousUserStore{client: client, key: k}
}

// Compile-time interface check.
var _ storage.SuspiciousUserStore = (*SuspiciousUserStore)(nil)

// Add marks a user as suspicious. Idempotent.
func (s *SuspiciousUserStore) Add(ctx context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	if err := s.client.SAdd(ctx, s.key, userID).Err(); err != nil {
		return fmt.Errorf("redis sadd suspicious user: %w", err)
	}
	return nil
}

// Contains reports whether a user is in the set.
func (s *SuspiciousUserStore) Contains(ctx context.Context, userID string) (bool, error) {
	exists, err := s.client.SIsMember(ctx, s.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember suspicious user: %w", err)
	}
	return exists, nil
}

// Count returns the set size.
func (s *SuspiciousUserStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard suspicious users: %w", err)
	}
	return int(n), nil
}

// List returns all flagged user IDs, sorted ascending.
func (s *SuspiciousUserStore) List(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers suspicious users: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

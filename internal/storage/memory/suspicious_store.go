package memory

import (
	"context"
	"sort"
	"sync"

	"humanpad/internal/storage"
)

// SuspiciousUserStore is an in-memory implementation of
// storage.SuspiciousUserStore. Add-only by contract.
type SuspiciousUserStore struct {
	mu   sync.RWMutex
	data map[string]struct{}
}

// NewSuspiciousUserStore creates a new in-memory suspicious-user set.
func NewSuspiciousUserStore() *SuspiciousUserStore {
	return &SuspiciousUserStore{
		data: make(map[string]struct{}),
	}
}

// Add marks a user as suspicious. Idempotent.
func (s *SuspiciousUserStore) Add(_ context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[userID] = struct{}{}
	return nil
}

// Contains reports whether a user is in the set.
func (s *SuspiciousUserStore) Contains(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[userID]
	return exists, nil
}

// Count returns the set size.
func (s *SuspiciousUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data), nil
}

// List returns all flagged user IDs, sorted ascending.
func (s *SuspiciousUserStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.data))
	for id := range s.data {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SuspiciousUserStore = (*SuspiciousUserStore)(nil)

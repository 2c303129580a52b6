package memory

import (
	"context"
	"sync"
	"time"

	"humanpad/internal/domain"
	"humanpad/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ActivityCounters // keyed by user_id
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		data: make(map[string]*domain.ActivityCounters),
	}
}

// Get retrieves the counters for a user. Returns ErrNotFound if the user
// has no recorded activity yet.
func (s *ActivityStore) Get(_ context.Context, userID string) (*domain.ActivityCounters, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	counterCopy := *c
	return &counterCopy, nil
}

// RecordTrade increments trades_completed and xp and stamps last_activity.
func (s *ActivityStore) RecordTrade(_ context.Context, userID string, xpGained int, at time.Time) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensureLocked(userID)
	c.TradesCompleted++
	c.XP += xpGained
	c.LastActivity = at
	return nil
}

// IncrementSuspicious bumps the suspicious_activity counter.
func (s *ActivityStore) IncrementSuspicious(_ context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensureLocked(userID)
	c.SuspiciousActivity++
	return c.SuspiciousActivity, nil
}

// IncrementCommunityReports bumps the community_reports counter.
func (s *ActivityStore) IncrementCommunityReports(_ context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensureLocked(userID)
	c.CommunityReports++
	return c.CommunityReports, nil
}

// ensureLocked returns the counters for userID, creating them if absent.
// Caller must hold the write lock.
func (s *ActivityStore) ensureLocked(userID string) *domain.ActivityCounters {
	c, exists := s.data[userID]
	if !exists {
		c = &domain.ActivityCounters{}
		s.data[userID] = c
	}
	return c
}

// Verify interface compliance at compile time.
var _ storage.ActivityStore = (*ActivityStore)(nil)

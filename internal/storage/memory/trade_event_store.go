package memory

import (
	"context"
	"sort"
	"sync"

	"humanpad/internal/domain"
	"humanpad/internal/storage"
)

// TradeEventStore is an in-memory implementation of storage.TradeEventStore.
type TradeEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeEvent // keyed by event_id
}

// NewTradeEventStore creates a new in-memory trade-event store.
func NewTradeEventStore() *TradeEventStore {
	return &TradeEventStore{
		data: make(map[string]*domain.TradeEvent),
	}
}

// Append adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *TradeEventStore) Append(_ context.Context, e *domain.TradeEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	eventCopy := *e
	s.data[e.EventID] = &eventCopy
	return nil
}

// GetByToken retrieves all events for a token, ordered by timestamp ASC.
func (s *TradeEventStore) GetByToken(_ context.Context, tokenID string) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, e := range s.data {
		if e.TokenID == tokenID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortByTimestampAsc(result)
	return result, nil
}

// GetByUser retrieves all events for a user, ordered by timestamp ASC.
func (s *TradeEventStore) GetByUser(_ context.Context, userID string) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, e := range s.data {
		if e.UserID == userID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortByTimestampAsc(result)
	return result, nil
}

// GetRecent retrieves the most recent events across all tokens, newest
// first, capped at limit.
func (s *TradeEventStore) GetRecent(_ context.Context, limit int) ([]*domain.TradeEvent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeEvent, 0, len(s.data))
	for _, e := range s.data {
		eventCopy := *e
		result = append(result, &eventCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp == result[j].Timestamp {
			return result[i].EventID > result[j].EventID
		}
		return result[i].Timestamp > result[j].Timestamp
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortByTimestampAsc orders events by timestamp, event_id as tiebreaker.
func sortByTimestampAsc(events []*domain.TradeEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp == events[j].Timestamp {
			return events[i].EventID < events[j].EventID
		}
		return events[i].Timestamp < events[j].Timestamp
	})
}

// Verify interface compliance at compile time.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

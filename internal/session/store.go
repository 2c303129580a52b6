package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"humanpad/internal/clock"
	"humanpad/internal/domain"
	"humanpad/internal/storage"
)

// Escalation thresholds checked on every successful trade.
const (
	escalationTrades = 50
	escalationVolume = 10000.0
)

// Store holds active trading sessions in memory, keyed by user.
// A user has at most one active session; creating a new one replaces
// the old (last-writer-wins).
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.TradingSession

	locks      *keyedLock
	clock      clock.Clock
	suspicious storage.SuspiciousUserStore
	log        *zap.Logger
}

// NewStore creates a session store backed by the given suspicious-user set.
func NewStore(clk clock.Clock, suspicious storage.SuspiciousUserStore, log *zap.Logger) *Store {
	return &Store{
		sessions:   make(map[string]*domain.TradingSession),
		locks:      newKeyedLock(),
		clock:      clk,
		suspicious: suspicious,
		log:        log,
	}
}

// LockUser serializes all trade processing for one user. Returns the
// unlock func. Callers must hold the lock across validate-then-update.
func (s *Store) LockUser(userID string) func() {
	return s.locks.acquire(userID)
}

// Create starts a new session for the user, replacing any existing one.
func (s *Store) Create(_ context.Context, userID string, level domain.VerificationLevel, reputationScore int) (*domain.TradingSession, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	now := s.clock.Now()
	sess := &domain.TradingSession{
		UserID:            userID,
		SessionID:         newSessionID(),
		StartTime:         now,
		LastActivity:      now,
		VerificationLevel: level,
		ReputationScore:   reputationScore,
	}

	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()

	sessCopy := *sess
	return &sessCopy, nil
}

// Get retrieves the user's active session. Returns ErrNotFound if none.
func (s *Store) Get(_ context.Context, userID string) (*domain.TradingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	sessCopy := *sess
	sessCopy.Flags = append([]string(nil), sess.Flags...)
	return &sessCopy, nil
}

// RecordTrade updates the session after a successful trade: bumps the
// trade count, adds the traded volume, stamps last_activity, and
// escalates the session to suspicious once it crosses either threshold.
func (s *Store) RecordTrade(ctx context.Context, userID string, amount float64) error {
	s.mu.Lock()
	sess, exists := s.sessions[userID]
	if !exists {
		s.mu.Unlock()
		return storage.ErrNotFound
	}

	sess.TradesCount++
	sess.VolumeTraded += amount
	sess.LastActivity = s.clock.Now()

	escalate := !sess.IsSuspicious &&
		(sess.TradesCount > escalationTrades || sess.VolumeTraded > escalationVolume)
	if escalate {
		sess.IsSuspicious = true
	}
	s.mu.Unlock()

	if escalate {
		s.log.Warn("session escalated to suspicious",
			zap.String("user_id", userID),
			zap.Float64("volume", amount))
		if err := s.suspicious.Add(ctx, userID); err != nil {
			s.log.Error("failed to flag user in suspicious set",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// AppendFlags adds pattern flags to the session. Missing session is a
// no-op: the flag still lives in the global suspicious set.
func (s *Store) AppendFlags(_ context.Context, userID string, flags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[userID]
	if !exists {
		return
	}
	sess.Flags = append(sess.Flags, flags...)
}

// MarkSuspicious flags the session and adds the user to the global set.
func (s *Store) MarkSuspicious(ctx context.Context, userID string) {
	s.mu.Lock()
	if sess, exists := s.sessions[userID]; exists {
		sess.IsSuspicious = true
	}
	s.mu.Unlock()

	if err := s.suspicious.Add(ctx, userID); err != nil {
		s.log.Error("failed to flag user in suspicious set",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// FlaggedCount returns the number of active sessions marked suspicious.
func (s *Store) FlaggedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sess := range s.sessions {
		if sess.IsSuspicious {
			n++
		}
	}
	return n
}

// EvictIdle removes sessions idle for longer than ttl and returns how
// many were dropped.
func (s *Store) EvictIdle(ttlMinutes float64) int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for userID, sess := range s.sessions {
		if now.Sub(sess.LastActivity).Minutes() > ttlMinutes {
			delete(s.sessions, userID)
			evicted++
		}
	}
	return evicted
}

// newSessionID returns a base58-encoded random UUID.
func newSessionID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}

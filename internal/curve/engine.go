package curve

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"humanpad/internal/clock"
	"humanpad/internal/domain"
	"humanpad/internal/idhash"
	"humanpad/internal/risk"
	"humanpad/internal/session"
	"humanpad/internal/storage"
)

// Notifier receives every executed trade, e.g. for a live feed.
type Notifier interface {
	BroadcastTrade(e *domain.TradeEvent)
}

// tokenState couples one token's curve state with its mutex. All
// trades against a token apply in the order the mutex admits them;
// price updates are non-commutative.
type tokenState struct {
	mu    sync.Mutex
	state domain.BondingCurveState
}

// Engine prices trades against per-token bonding curves and
// orchestrates validation, curve update and session update.
type Engine struct {
	mu     sync.RWMutex
	tokens map[string]*tokenState

	cfg      domain.CurveConfig
	risk     *risk.Engine
	sessions *session.Store
	events   storage.TradeEventStore
	clock    clock.Clock
	log      *zap.Logger
	notifier Notifier
}

// NewEngine creates a curve engine. notifier may be nil.
func NewEngine(cfg domain.CurveConfig, riskEngine *risk.Engine, sessions *session.Store, events storage.TradeEventStore, clk clock.Clock, log *zap.Logger) *Engine {
	return &Engine{
		tokens:   make(map[string]*tokenState),
		cfg:      cfg,
		risk:     riskEngine,
		sessions: sessions,
		events:   events,
		clock:    clk,
		log:      log,
	}
}

// SetNotifier attaches a trade feed. Call before serving traffic.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// Launch registers a new token at the configured base price.
func (e *Engine) Launch(tokenID string) (*domain.BondingCurveState, error) {
	if tokenID == "" {
		return nil, storage.ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tokens[tokenID]; exists {
		return nil, ErrTokenExists
	}

	ts := &tokenState{
		state: domain.BondingCurveState{
			TokenID:      tokenID,
			CurrentPrice: e.cfg.BasePrice,
		},
	}
	e.tokens[tokenID] = ts

	e.log.Info("token launched",
		zap.String("token_id", tokenID),
		zap.Float64("base_price", e.cfg.BasePrice))

	stateCopy := ts.state
	return &stateCopy, nil
}

// State returns a snapshot of a token's curve state.
func (e *Engine) State(tokenID string) (*domain.BondingCurveState, error) {
	ts, err := e.lookup(tokenID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	stateCopy := ts.state
	return &stateCopy, nil
}

// ProcessTrade validates and executes one buy against the token's
// curve. A rejected trade returns success=false with the verdict and
// mutates nothing. The per-user lock is held across validation and the
// session update so no second trade for the same user can interleave.
func (e *Engine) ProcessTrade(ctx context.Context, attempt *domain.TradeAttempt) (*domain.TradeResult, error) {
	ts, err := e.lookup(attempt.TokenID)
	if err != nil {
		return nil, err
	}

	unlock := e.sessions.LockUser(attempt.UserID)
	defer unlock()

	verdict := e.risk.Validate(ctx, attempt)
	if !verdict.Allowed {
		ts.mu.Lock()
		currentPrice := ts.state.CurrentPrice
		ts.mu.Unlock()

		return &domain.TradeResult{
			Success:   false,
			NewPrice:  currentPrice,
			Reason:    verdict.Reason,
			RiskScore: verdict.RiskScore,
		}, nil
	}

	ts.mu.Lock()
	if ts.state.CurrentPrice <= 0 {
		ts.mu.Unlock()
		return nil, ErrInvalidPrice
	}
	if attempt.Amount <= 0 {
		ts.mu.Unlock()
		return nil, ErrInvalidAmount
	}

	price := ts.state.CurrentPrice
	tokensReceived := attempt.Amount / price

	newPrice := price + e.cfg.PriceIncrement*tokensReceived/100
	if newPrice > e.cfg.MaxPrice {
		newPrice = e.cfg.MaxPrice
	}

	now := e.clock.Now()
	human := attempt.VerificationLevel != domain.LevelDevice

	ts.state.CurrentPrice = newPrice
	ts.state.TotalSupply += tokensReceived
	ts.state.TotalRaised += attempt.Amount
	ts.state.LastTradeTime = now
	if human {
		ts.state.HumanTrades++
	} else {
		ts.state.BotTrades++
	}
	ts.mu.Unlock()

	event := &domain.TradeEvent{
		TokenID:        attempt.TokenID,
		UserID:         attempt.UserID,
		Amount:         attempt.Amount,
		TokensReceived: tokensReceived,
		Price:          price,
		NewPrice:       newPrice,
		Human:          human,
		RiskScore:      verdict.RiskScore,
		Timestamp:      now.UnixMilli(),
	}
	event.EventID = idhash.ComputeEventID(event.TokenID, event.UserID, event.Amount, event.Timestamp)

	// History is best-effort: the curve already moved, so an append
	// failure is logged rather than rolled back.
	if err := e.events.Append(ctx, event); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		e.log.Error("failed to append trade event",
			zap.String("event_id", event.EventID), zap.Error(err))
	}

	if e.notifier != nil {
		e.notifier.BroadcastTrade(event)
	}

	if err := e.sessions.RecordTrade(ctx, attempt.UserID, attempt.Amount); err != nil {
		e.log.Error("failed to update session after trade",
			zap.String("user_id", attempt.UserID), zap.Error(err))
	}

	return &domain.TradeResult{
		Success:        true,
		TokensReceived: tokensReceived,
		NewPrice:       newPrice,
		RiskScore:      verdict.RiskScore,
	}, nil
}

// Metrics aggregates anti-manipulation counters across all tokens.
func (e *Engine) Metrics(ctx context.Context, suspicious storage.SuspiciousUserStore) (*domain.AntiManipulationMetrics, error) {
	e.mu.RLock()
	var human, bot int
	for _, ts := range e.tokens {
		ts.mu.Lock()
		human += ts.state.HumanTrades
		bot += ts.state.BotTrades
		ts.mu.Unlock()
	}
	e.mu.RUnlock()

	suspiciousCount, err := suspicious.Count(ctx)
	if err != nil {
		return nil, err
	}

	total := human + bot
	m := &domain.AntiManipulationMetrics{
		TotalTrades:     total,
		HumanTrades:     human,
		BotTrades:       bot,
		SuspiciousUsers: suspiciousCount,
		FlaggedSessions: e.sessions.FlaggedCount(),
	}
	if total > 0 {
		m.HumanSharePct = round2(float64(human) / float64(total) * 100)
	}
	return m, nil
}

func (e *Engine) lookup(tokenID string) (*tokenState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ts, exists := e.tokens[tokenID]
	if !exists {
		return nil, ErrTokenNotFound
	}
	return ts, nil
}

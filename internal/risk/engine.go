package risk

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"humanpad/internal/clock"
	"humanpad/internal/domain"
	"humanpad/internal/limits"
	"humanpad/internal/reputation"
	"humanpad/internal/session"
	"humanpad/internal/storage"
)

// Rejection reasons, one per branch of the decision chain.
const (
	ReasonNoSession          = "No active trading session"
	ReasonInsufficientLevel  = "Insufficient verification level"
	ReasonLowReputation      = "Reputation score too low"
	ReasonExceedsMaxPurchase = "Exceeds maximum purchase amount"
	ReasonCooldown           = "In cooldown period"
	ReasonSuspiciousPattern  = "Suspicious trading pattern detected"
	ReasonHighRisk           = "High risk trade detected"
)

// Pattern flags attached to the session when detection fires.
const (
	FlagRapidTrading = "rapid trading"
	FlagRoundNumber  = "round-number trading"
	FlagUnusualTime  = "unusual trading time"
)

const (
	minReputationScore = 50

	// Composite score weights.
	baseRiskDevice = 30
	baseRiskPhone  = 15
	baseRiskOrb    = 5

	riskThreshold = 80
	maxRiskScore  = 100
)

// Engine validates trade attempts against session state, derived
// limits, cooldowns and pattern heuristics. Checks run in a fixed
// order and the first match wins; later checks assume earlier ones
// passed.
type Engine struct {
	sessions *session.Store
	limits   *limits.Calculator
	clock    clock.Clock
	log      *zap.Logger

	minLevel domain.VerificationLevel
}

// NewEngine creates a risk engine. minLevel is the lowest verification
// level allowed to trade.
func NewEngine(sessions *session.Store, calc *limits.Calculator, clk clock.Clock, minLevel domain.VerificationLevel, log *zap.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		limits:   calc,
		clock:    clk,
		log:      log,
		minLevel: minLevel,
	}
}

// Validate runs the decision chain for one trade attempt. Callers that
// intend to act on an approval must hold the per-user session lock
// across Validate and the subsequent session update.
func (e *Engine) Validate(ctx context.Context, attempt *domain.TradeAttempt) *domain.ValidationResult {
	sess, err := e.sessions.Get(ctx, attempt.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.log.Error("session lookup failed", zap.String("user_id", attempt.UserID), zap.Error(err))
		}
		return &domain.ValidationResult{Allowed: false, Reason: ReasonNoSession, RiskScore: 100}
	}

	if attempt.VerificationLevel < e.minLevel {
		return &domain.ValidationResult{Allowed: false, Reason: ReasonInsufficientLevel, RiskScore: 90}
	}

	if attempt.ReputationScore < minReputationScore {
		return &domain.ValidationResult{Allowed: false, Reason: ReasonLowReputation, RiskScore: 85}
	}

	tier := reputation.LevelForScore(sess.ReputationScore)
	lim := e.limits.Derive(sess.VerificationLevel, tier)
	if attempt.Amount > lim.MaxPurchaseAmount {
		return &domain.ValidationResult{Allowed: false, Reason: ReasonExceedsMaxPurchase, RiskScore: 80}
	}

	now := e.clock.Now()
	cooldown := time.Duration(lim.CooldownPeriod * float64(time.Minute))
	if now.Sub(sess.LastActivity) < cooldown {
		return &domain.ValidationResult{Allowed: false, Reason: ReasonCooldown, RiskScore: 70}
	}

	if flags := detectPatterns(sess, attempt.Amount, now); len(flags) > 0 {
		e.sessions.AppendFlags(ctx, attempt.UserID, flags...)
		e.sessions.MarkSuspicious(ctx, attempt.UserID)
		e.log.Warn("suspicious trading pattern",
			zap.String("user_id", attempt.UserID),
			zap.Strings("flags", flags))
		return &domain.ValidationResult{Allowed: false, Reason: ReasonSuspiciousPattern, RiskScore: 95}
	}

	score := compositeScore(sess, attempt)
	result := &domain.ValidationResult{Allowed: score < riskThreshold, RiskScore: score}
	if score >= riskThreshold {
		result.Reason = ReasonHighRisk
	}
	return result
}

// detectPatterns returns every pattern flag the attempt matches.
func detectPatterns(sess *domain.TradingSession, amount float64, now time.Time) []string {
	var flags []string

	if sess.TradesCount > 10 && now.Sub(sess.StartTime) < time.Minute {
		flags = append(flags, FlagRapidTrading)
	}
	if math.Mod(amount, 100) == 0 && amount > 1000 {
		flags = append(flags, FlagRoundNumber)
	}
	if hour := now.Hour(); hour < 6 || hour > 22 {
		flags = append(flags, FlagUnusualTime)
	}
	return flags
}

// compositeScore computes the step-7 risk score, capped at 100.
// The reputation penalties are independently additive: a score below
// 100 takes both the <200 and <100 penalties.
func compositeScore(sess *domain.TradingSession, attempt *domain.TradeAttempt) int {
	var score int

	switch attempt.VerificationLevel {
	case domain.LevelOrb:
		score = baseRiskOrb
	case domain.LevelPhone:
		score = baseRiskPhone
	default:
		score = baseRiskDevice
	}

	if attempt.ReputationScore < 200 {
		score += 20
	}
	if attempt.ReputationScore < 100 {
		score += 30
	}
	if sess.TradesCount > 20 {
		score += 15
	}
	if sess.VolumeTraded > 5000 {
		score += 10
	}
	if attempt.Amount > 1000 {
		score += 10
	}
	if attempt.Amount > 5000 {
		score += 20
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	return score
}

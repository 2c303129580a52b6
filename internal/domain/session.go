package domain

import "time"

// TradingSession is the per-user, in-memory record of trading activity used
// for rate limiting and risk scoring.
// Invariants: TradesCount and VolumeTraded are monotonically non-decreasing
// for the life of the session; exactly one session is active per user.
type TradingSession struct {
	UserID            string            `json:"user_id"`
	SessionID         string            `json:"session_id"`
	StartTime         time.Time         `json:"start_time"`
	LastActivity      time.Time         `json:"last_activity"`
	TradesCount       int               `json:"trades_count"`
	VolumeTraded      float64           `json:"volume_traded"`
	VerificationLevel VerificationLevel `json:"verification_level"`
	ReputationScore   int               `json:"reputation_score"` // snapshot at creation
	IsSuspicious      bool              `json:"is_suspicious"`
	Flags             []string          `json:"flags"` // ordered, append-only
}

package domain

import "time"

// Trade type constants for simulation.
const (
	TradeTypeBuy  = "buy"
	TradeTypeSell = "sell"
)

// TradeAttempt is the immutable input value for a trade request.
type TradeAttempt struct {
	UserID            string            `json:"user_id"`
	TokenID           string            `json:"token_id"`
	Amount            float64           `json:"amount"`
	VerificationLevel VerificationLevel `json:"verification_level"`
	ReputationScore   int               `json:"reputation_score"`
	Timestamp         time.Time         `json:"timestamp"`
}

// ValidationResult is the risk engine verdict for a trade attempt.
// A denied attempt is a normal result, not an error.
type ValidationResult struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	RiskScore int    `json:"risk_score"` // 0-100
}

// TradeResult is the outcome of processing a trade against the curve.
type TradeResult struct {
	Success        bool    `json:"success"`
	TokensReceived float64 `json:"tokens_received"`
	NewPrice       float64 `json:"new_price"`
	Reason         string  `json:"reason,omitempty"`
	RiskScore      int     `json:"risk_score"`
}

// SimulationResult is the pure, non-mutating price preview for a trade.
// Token and price fields are rounded to 6 decimal places, percentage
// fields to 2 — callers depend on that granularity.
type SimulationResult struct {
	TradeType      string  `json:"trade_type"` // buy | sell
	Amount         float64 `json:"amount"`
	CurrentPrice   float64 `json:"current_price"`
	NewPrice       float64 `json:"new_price"`
	TokensReceived float64 `json:"tokens_received,omitempty"` // buy only
	TokensSold     float64 `json:"tokens_sold,omitempty"`     // sell only
	Proceeds       float64 `json:"proceeds,omitempty"`        // sell only
	PriceImpactPct float64 `json:"price_impact_pct"`
}

// TradeEvent is one executed trade in the per-token history.
type TradeEvent struct {
	EventID        string  `json:"event_id"` // deterministic hash
	TokenID        string  `json:"token_id"`
	UserID         string  `json:"user_id"`
	Amount         float64 `json:"amount"`
	TokensReceived float64 `json:"tokens_received"`
	Price          float64 `json:"price"` // execution price
	NewPrice       float64 `json:"new_price"`
	Human          bool    `json:"human"`
	RiskScore      int     `json:"risk_score"`
	Timestamp      int64   `json:"timestamp"` // Unix ms
}

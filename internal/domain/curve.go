package domain

import "time"

// CurveConfig is the bonding curve configuration shared by all tokens.
type CurveConfig struct {
	BasePrice      float64 `json:"base_price"`
	PriceIncrement float64 `json:"price_increment"`
	MaxPrice       float64 `json:"max_price"`
}

// BondingCurveState is the per-token pricing state.
// Invariant: CurrentPrice is monotonically non-decreasing under
// ProcessTrade and capped at the configured MaxPrice.
type BondingCurveState struct {
	TokenID       string    `json:"token_id"`
	CurrentPrice  float64   `json:"current_price"`
	TotalSupply   float64   `json:"total_supply"`
	TotalRaised   float64   `json:"total_raised"`
	HumanTrades   int       `json:"human_trades"`
	BotTrades     int       `json:"bot_trades"`
	LastTradeTime time.Time `json:"last_trade_time"`
}

// CurvePoint is one charting point of the configured curve.
type CurvePoint struct {
	Price  float64 `json:"price"`
	Supply float64 `json:"supply"`
	Raised float64 `json:"raised"`
}

// AntiManipulationMetrics summarizes how trading splits between verified
// humans and suspected bots across all tokens.
type AntiManipulationMetrics struct {
	TotalTrades     int     `json:"total_trades"`
	HumanTrades     int     `json:"human_trades"`
	BotTrades       int     `json:"bot_trades"`
	HumanSharePct   float64 `json:"human_share_pct"` // rounded to 2 decimals
	SuspiciousUsers int     `json:"suspicious_users"`
	FlaggedSessions int     `json:"flagged_sessions"`
}

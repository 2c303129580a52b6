package domain

// TradingLimits are derived from (VerificationLevel, ReputationLevel).
// Never persisted; recomputed on demand.
type TradingLimits struct {
	MaxPurchaseAmount float64 `json:"max_purchase_amount"`
	MaxDailyVolume    float64 `json:"max_daily_volume"`
	CooldownPeriod    float64 `json:"cooldown_period"` // minutes
	MaxTradesPerHour  int     `json:"max_trades_per_hour"`
	MaxTradesPerDay   int     `json:"max_trades_per_day"`
}

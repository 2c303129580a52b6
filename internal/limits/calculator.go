// Package limits derives per-user trading limits from verification level
// and reputation tier.
package limits

import (
	"math"

	"humanpad/internal/domain"
)

// baseLimits is the per-verification-level base table.
type baseLimits struct {
	maxPurchase float64
	maxDaily    float64
	cooldown    float64 // minutes
	perHour     int
	perDay      int
}

// Base limits per verification level.
var baseByLevel = map[domain.VerificationLevel]baseLimits{
	domain.LevelDevice: {maxPurchase: 100, maxDaily: 500, cooldown: 60, perHour: 5, perDay: 20},
	domain.LevelPhone:  {maxPurchase: 500, maxDaily: 2000, cooldown: 30, perHour: 10, perDay: 50},
	domain.LevelOrb:    {maxPurchase: 2000, maxDaily: 10000, cooldown: 15, perHour: 20, perDay: 100},
}

// Reputation multipliers.
var multiplierByTier = map[domain.ReputationLevel]float64{
	domain.ReputationBronze:  1,
	domain.ReputationSilver:  1.5,
	domain.ReputationGold:    2,
	domain.ReputationDiamond: 3,
}

// minCooldownMinutes floors the cooldown so high multipliers can never
// eliminate it entirely.
const minCooldownMinutes = 5

// Calculator derives TradingLimits. Pure computation, never persisted.
type Calculator struct{}

// NewCalculator creates a limits calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Derive computes the limits for a (verification level, reputation tier)
// pair. Unknown levels fall back to Device/Bronze, the most restrictive.
func (c *Calculator) Derive(level domain.VerificationLevel, tier domain.ReputationLevel) domain.TradingLimits {
	base, ok := baseByLevel[level]
	if !ok {
		base = baseByLevel[domain.LevelDevice]
	}
	mult, ok := multiplierByTier[tier]
	if !ok {
		mult = multiplierByTier[domain.ReputationBronze]
	}

	cooldown := base.cooldown / mult
	if cooldown < minCooldownMinutes {
		cooldown = minCooldownMinutes
	}

	return domain.TradingLimits{
		MaxPurchaseAmount: base.maxPurchase * mult,
		MaxDailyVolume:    base.maxDaily * mult,
		CooldownPeriod:    cooldown,
		MaxTradesPerHour:  int(math.Floor(float64(base.perHour) * mult)),
		MaxTradesPerDay:   int(math.Floor(float64(base.perDay) * mult)),
	}
}

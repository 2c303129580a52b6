package curve

import (
	"math"

	"humanpad/internal/domain"
)

// Simulate previews a trade against a state snapshot without mutating
// anything. Token and price outputs carry 6 decimal places, the impact
// percentage 2; callers compare against these rounded values.
func Simulate(tradeType string, amount float64, state *domain.BondingCurveState) (*domain.SimulationResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if state == nil || state.CurrentPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	price := state.CurrentPrice

	switch tradeType {
	case domain.TradeTypeBuy:
		tokens := amount / price
		priceIncrease := (tokens / 1000) * 0.01
		newPrice := price * (1 + priceIncrease)

		return &domain.SimulationResult{
			TradeType:      domain.TradeTypeBuy,
			Amount:         amount,
			CurrentPrice:   round6(price),
			NewPrice:       round6(newPrice),
			TokensReceived: round6(tokens),
			PriceImpactPct: round2(priceIncrease * 100),
		}, nil

	case domain.TradeTypeSell:
		if amount > state.TotalSupply {
			return nil, ErrInsufficientBalance
		}
		priceDecrease := (amount / 1000) * 0.01
		newPrice := price * (1 - priceDecrease)

		return &domain.SimulationResult{
			TradeType:      domain.TradeTypeSell,
			Amount:         amount,
			CurrentPrice:   round6(price),
			NewPrice:       round6(newPrice),
			TokensSold:     round6(amount),
			Proceeds:       round6(amount * price),
			PriceImpactPct: round2(priceDecrease * 100),
		}, nil

	default:
		return nil, ErrInvalidTradeType
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}

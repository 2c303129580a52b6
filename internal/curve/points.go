package curve

import "humanpad/internal/domain"

const (
	maxCurvePoints  = 100
	curveSupplyStep = 1000.0
)

// CurveData projects the configured curve as a chart-friendly series:
// up to 100 (price, supply, raised) points stepping 1000 tokens until
// the price cap. Pure function of the configuration, not of live
// trading state.
func CurveData(cfg domain.CurveConfig) []domain.CurvePoint {
	points := make([]domain.CurvePoint, 0, maxCurvePoints)

	price := cfg.BasePrice
	supply := 0.0
	raised := 0.0

	for i := 0; i < maxCurvePoints; i++ {
		points = append(points, domain.CurvePoint{
			Price:  round6(price),
			Supply: supply,
			Raised: round6(raised),
		})

		if price >= cfg.MaxPrice {
			break
		}

		raised += curveSupplyStep * price
		supply += curveSupplyStep
		price += cfg.PriceIncrement * curveSupplyStep / 100
		if price > cfg.MaxPrice {
			price = cfg.MaxPrice
		}
	}

	return points
}

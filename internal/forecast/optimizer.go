package forecast

import (
	"sort"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/shopspring/decimal"
)

var tierRank = map[domain.PriorityTier]int{
	domain.TierEssential:   0,
	domain.TierRecommended: 1,
	domain.TierOptional:    2,
}

type purchaseCandidate struct {
	forecast *domain.SKUForecast
	tier     domain.PriorityTier
	ratio    float64
}

// Optimize builds a purchase plan that funds essential, then recommended, then
// optional items in margin-per-cost order without ever exceeding budget. An
// item that does not fit in full gets the largest whole quantity that does.
func Optimize(forecasts []domain.SKUForecast, budget float64) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Items:           make([]domain.PurchaseLine, 0),
		Budget:          budget,
		RemainingBudget: budget,
	}
	if budget <= 0 {
		result.RemainingBudget = 0
		return result
	}

	candidates := purchaseCandidates(forecasts)

	remaining := decimal.NewFromFloat(budget)
	totalCost := decimal.Zero
	totalMargin := decimal.Zero

	for _, c := range candidates {
		f := c.forecast
		unitCost := decimal.NewFromFloat(f.PurchasePrice)
		qty := affordableQuantity(unitCost, f.RecommendedOrderQty, remaining)
		if qty <= 0 {
			continue
		}

		units := decimal.NewFromInt(int64(qty))
		cost := unitCost.Mul(units)
		margin := decimal.NewFromFloat(f.Margin).Mul(units)

		remaining = remaining.Sub(cost)
		totalCost = totalCost.Add(cost)
		totalMargin = totalMargin.Add(margin)

		result.Items = append(result.Items, domain.PurchaseLine{
			ProductCode:        f.ProductCode,
			ProductName:        f.ProductName,
			Supplier:           f.Supplier,
			Quantity:           qty,
			UnitCost:           f.PurchasePrice,
			Cost:               cost.InexactFloat64(),
			MarginContribution: margin.InexactFloat64(),
			Priority:           c.tier,
		})
	}

	result.TotalCost = totalCost.InexactFloat64()
	result.TotalMargin = totalMargin.InexactFloat64()
	result.RemainingBudget = decimal.NewFromFloat(budget).Sub(totalCost).InexactFloat64()
	result.ItemCount = len(result.Items)

	return result
}

// purchaseCandidates tiers and ranks the forecasts eligible for purchase
func purchaseCandidates(forecasts []domain.SKUForecast) []purchaseCandidate {
	candidates := make([]purchaseCandidate, 0, len(forecasts))
	for i := range forecasts {
		f := &forecasts[i]
		if f.RecommendedOrderQty <= 0 || f.PurchasePrice <= 0 {
			continue
		}

		var tier domain.PriorityTier
		switch f.Status {
		case domain.StatusCritical:
			tier = domain.TierEssential
		case domain.StatusLow:
			tier = domain.TierRecommended
		default:
			if f.Margin <= 0 {
				continue
			}
			tier = domain.TierOptional
		}

		candidates = append(candidates, purchaseCandidate{
			forecast: f,
			tier:     tier,
			ratio:    f.Margin / f.PurchasePrice,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if tierRank[a.tier] != tierRank[b.tier] {
			return tierRank[a.tier] < tierRank[b.tier]
		}
		if a.ratio != b.ratio {
			return a.ratio > b.ratio
		}
		return a.forecast.ProductCode < b.forecast.ProductCode
	})

	return candidates
}

// affordableQuantity returns min(want, floor(remaining / unitCost))
func affordableQuantity(unitCost decimal.Decimal, want int, remaining decimal.Decimal) int {
	if want <= 0 || !unitCost.IsPositive() || !remaining.IsPositive() {
		return 0
	}

	if unitCost.Mul(decimal.NewFromInt(int64(want))).LessThanOrEqual(remaining) {
		return want
	}

	qty := remaining.Div(unitCost).Floor().IntPart()
	// Div rounds at DivisionPrecision; step back if that pushed us over
	for qty > 0 && unitCost.Mul(decimal.NewFromInt(qty)).GreaterThan(remaining) {
		qty--
	}
	if qty > int64(want) {
		qty = int64(want)
	}
	return int(qty)
}

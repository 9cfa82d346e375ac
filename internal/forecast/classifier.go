package forecast

import (
	"math"
	"sort"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

const (
	classACutoff = 70.0
	classBCutoff = 90.0

	// absorbs float drift when a running sum lands exactly on a cutoff
	cutoffEpsilon = 1e-9
)

// ProductRevenue is the revenue of one product used for ABC ranking
type ProductRevenue struct {
	ProductCode string
	Revenue     float64
}

// ClassifyABC assigns every product exactly one Pareto class by the revenue
// share ranked ahead of it: A while that share is under 70%, B under 90%, C
// beyond. The top seller is therefore always A.
func ClassifyABC(revenues []ProductRevenue) map[string]domain.ABCClass {
	classes := make(map[string]domain.ABCClass, len(revenues))

	sorted := make([]ProductRevenue, len(revenues))
	copy(sorted, revenues)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Revenue != sorted[j].Revenue {
			return sorted[i].Revenue > sorted[j].Revenue
		}
		return sorted[i].ProductCode < sorted[j].ProductCode
	})

	var total float64
	for _, r := range sorted {
		total += math.Max(0, r.Revenue)
	}

	var ahead float64
	for _, r := range sorted {
		if total <= 0 {
			classes[r.ProductCode] = domain.ClassC
			continue
		}

		pct := ahead / total * 100
		ahead += math.Max(0, r.Revenue)

		switch {
		case pct < classACutoff-cutoffEpsilon:
			classes[r.ProductCode] = domain.ClassA
		case pct < classBCutoff-cutoffEpsilon:
			classes[r.ProductCode] = domain.ClassB
		default:
			classes[r.ProductCode] = domain.ClassC
		}
	}

	return classes
}

// ClassifyVelocity buckets a product by its annualized stock turn
func ClassifyVelocity(avgDailyDemand float64, currentStock int, cfg Config) domain.StockSpeed {
	if avgDailyDemand < cfg.DeadDemandThreshold {
		return domain.SpeedDead
	}

	annualTurn := AnnualTurn(avgDailyDemand, currentStock)
	if annualTurn > cfg.HighTurnThreshold {
		return domain.SpeedFast
	}
	return domain.SpeedSlow
}

// AnnualTurn is yearly demand over on-hand stock, with stock floored at one unit
func AnnualTurn(avgDailyDemand float64, currentStock int) float64 {
	stock := math.Max(float64(currentStock), 1)
	return avgDailyDemand * 365 / stock
}

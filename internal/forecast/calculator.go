package forecast

import (
	"math"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// conventional z-scores for the common service levels
var serviceLevelZ = map[float64]float64{
	0.90:  1.28,
	0.95:  1.65,
	0.975: 1.96,
	0.99:  2.33,
}

// ReorderInputs are the per-product values the reorder calculator needs
type ReorderInputs struct {
	AvgDailyDemand float64
	StdDev         float64
	Trend          domain.TrendDirection
	CurrentStock   int
	MaxStock       *int
	LeadTimeDays   int
	HorizonDays    int
}

// ReorderMetrics holds the safety stock and replenishment outputs
type ReorderMetrics struct {
	SafetyStock         float64
	ReorderPoint        float64
	ForecastDemand      float64
	RecommendedOrderQty int
}

// ReorderCalculator computes safety stock, reorder point and order quantity
type ReorderCalculator struct {
	z float64
}

// NewReorderCalculator creates a calculator for the given service level
func NewReorderCalculator(serviceLevel float64) *ReorderCalculator {
	return &ReorderCalculator{z: ZScore(serviceLevel)}
}

// Z returns the standard-normal multiplier in use
func (rc *ReorderCalculator) Z() float64 {
	return rc.z
}

// Calculate computes all reorder metrics for one product
func (rc *ReorderCalculator) Calculate(in ReorderInputs) ReorderMetrics {
	metrics := ReorderMetrics{}
	leadTime := float64(in.LeadTimeDays)

	// 1. Safety stock = z × σ × √L
	metrics.SafetyStock = math.Max(0, rc.z*in.StdDev*math.Sqrt(leadTime))

	// 2. Reorder point = (daily demand × L) + safety stock
	metrics.ReorderPoint = math.Max(0, in.AvgDailyDemand*leadTime) + metrics.SafetyStock

	// 3. Horizon demand, nudged by the trend direction
	metrics.ForecastDemand = math.Max(0, in.AvgDailyDemand*float64(in.HorizonDays)*trendMultiplier(in.Trend))

	// 4. Order enough to reach the reorder point and cover the horizon, capped at max stock
	need := math.Ceil(metrics.ReorderPoint + metrics.ForecastDemand - float64(in.CurrentStock))
	qty := int(math.Max(0, need))
	if in.MaxStock != nil {
		room := *in.MaxStock - in.CurrentStock
		if room < 0 {
			room = 0
		}
		if qty > room {
			qty = room
		}
	}
	metrics.RecommendedOrderQty = qty

	return metrics
}

// ZScore maps a service level to its standard-normal multiplier
func ZScore(serviceLevel float64) float64 {
	for level, z := range serviceLevelZ {
		if math.Abs(level-serviceLevel) < 1e-9 {
			return z
		}
	}
	if serviceLevel <= 0 || serviceLevel >= 1 {
		return serviceLevelZ[0.95]
	}
	return math.Sqrt2 * math.Erfinv(2*serviceLevel-1)
}

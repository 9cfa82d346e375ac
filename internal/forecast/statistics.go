package forecast

import (
	"math"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

const (
	trendUpFactor   = 1.1
	trendDownFactor = 0.9
	trendWindow     = 3
)

// ComputeStats derives demand statistics for one product. refMonth anchors the
// trend window and is the month of the latest sale in the ledger.
func ComputeStats(p *ProductAggregate, refMonth time.Month) DemandStats {
	stats := DemandStats{}

	if p.ActiveDays > 0 {
		stats.AvgDailyDemand = p.TotalQuantity / float64(p.ActiveDays)
	}
	stats.StdDev = PopulationStdDev(p.Quantities)

	// Zero demand has no meaningful dispersion ratio; treat it as erratic.
	stats.CV = 1
	if stats.AvgDailyDemand > 0 {
		stats.CV = stats.StdDev / stats.AvgDailyDemand
	}
	stats.Consistency = consistencyTier(stats.CV)
	stats.Trend = TrendFromMonths(p.MonthlyTotals, refMonth)

	return stats
}

// PopulationStdDev returns the standard deviation of values dividing by n
func PopulationStdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

func consistencyTier(cv float64) domain.Consistency {
	switch {
	case cv < 0.5:
		return domain.ConsistencyHigh
	case cv < 1.0:
		return domain.ConsistencyMedium
	default:
		return domain.ConsistencyLow
	}
}

// TrendFromMonths compares the average of the three months ending at refMonth
// with the average of the three months before them, wrapping across the year.
func TrendFromMonths(months [12]float64, refMonth time.Month) domain.TrendDirection {
	if refMonth < time.January || refMonth > time.December {
		return domain.TrendStable
	}
	ref := int(refMonth) - 1

	var recent, prior float64
	for k := 0; k < trendWindow; k++ {
		recent += months[(ref-k+12)%12]
		prior += months[(ref-k-trendWindow+12)%12]
	}
	recent /= trendWindow
	prior /= trendWindow

	switch {
	case recent > trendUpFactor*prior:
		return domain.TrendIncreasing
	case recent < trendDownFactor*prior:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// trendMultiplier scales horizon demand by the trend direction
func trendMultiplier(t domain.TrendDirection) float64 {
	switch t {
	case domain.TrendIncreasing:
		return trendUpFactor
	case domain.TrendDecreasing:
		return trendDownFactor
	default:
		return 1.0
	}
}

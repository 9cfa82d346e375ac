package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

const (
	criticalCoverDays = 7
	lowCoverDays      = 14
)

// RiskInputs are the per-product values the risk classifier needs
type RiskInputs struct {
	AvgDailyDemand float64
	StdDev         float64
	CurrentStock   int
	SafetyStock    float64
	LeadTimeDays   int
	ExpiryDate     *time.Time
}

// RiskAssessment is the stockout and expiry outlook of one product
type RiskAssessment struct {
	DaysUntilStockout   float64
	StockoutProbability float64
	Status              domain.StockStatus
	ExpiryRisk          bool
	ExpiryRiskReason    string
}

// AssessRisk classifies stockout and expiry risk as of asOf
func AssessRisk(in RiskInputs, expiryWindowDays int, asOf time.Time) RiskAssessment {
	r := RiskAssessment{}
	stock := float64(in.CurrentStock)

	r.DaysUntilStockout = domain.NoStockoutDays
	if in.AvgDailyDemand > 0 {
		r.DaysUntilStockout = stock / in.AvgDailyDemand
	}

	leadTime := float64(in.LeadTimeDays)
	r.StockoutProbability = StockoutProbability(
		in.AvgDailyDemand*leadTime,
		in.StdDev*math.Sqrt(leadTime),
		stock,
	)

	switch {
	case r.DaysUntilStockout < criticalCoverDays || stock < in.SafetyStock:
		r.Status = domain.StatusCritical
	case r.DaysUntilStockout < lowCoverDays:
		r.Status = domain.StatusLow
	default:
		r.Status = domain.StatusOK
	}

	r.ExpiryRisk, r.ExpiryRiskReason = expiryRisk(in, expiryWindowDays, asOf)

	return r
}

// StockoutProbability is P(D > stock) for lead-time demand D ~ N(mean, sd)
func StockoutProbability(mean, sd, stock float64) float64 {
	if sd <= 0 {
		if mean > stock {
			return 1
		}
		return 0
	}

	p := 1 - normalCDF((stock-mean)/sd)
	return math.Min(1, math.Max(0, p))
}

func normalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func expiryRisk(in RiskInputs, windowDays int, asOf time.Time) (bool, string) {
	if in.ExpiryDate == nil || in.ExpiryDate.IsZero() || in.CurrentStock <= 0 {
		return false, ""
	}

	days := daysBetween(asOf, *in.ExpiryDate)
	if days > windowDays {
		return false, ""
	}

	if days <= 0 {
		return true, fmt.Sprintf("expired %d days ago with %d units on hand", -days, in.CurrentStock)
	}

	leftover := float64(in.CurrentStock) - in.AvgDailyDemand*float64(days)
	if leftover <= 0 {
		return false, ""
	}

	return true, fmt.Sprintf("%.0f units projected unsold when stock expires in %d days",
		math.Ceil(leftover), days)
}

// daysBetween counts calendar days from from to to, ignoring time of day
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(t.Sub(f).Hours() / 24))
}

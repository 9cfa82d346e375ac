package forecast

import (
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// Config holds the tunables of the forecast engine
type Config struct {
	ServiceLevel        float64 // Target probability of not stocking out during lead time
	LeadTimeDays        int     // Supplier lead time when the catalog has none
	HorizonDays         int     // Forecast horizon when the request has none
	HighTurnThreshold   float64 // Annual turns above which a product is Fast
	DeadDemandThreshold float64 // Daily demand below which a product is Dead
	ExpiryWindowDays    int     // Days ahead an expiry date is considered at risk
	DefaultMinStock     int     // Catalog-wide min stock for products without a record
	DefaultMaxStock     int     // Catalog-wide max stock; 0 leaves max unset
	Workers             int     // Concurrency of the per-product stage
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		ServiceLevel:        0.95,
		LeadTimeDays:        7,
		HorizonDays:         30,
		HighTurnThreshold:   6,
		DeadDemandThreshold: 0.01,
		ExpiryWindowDays:    60,
		Workers:             4,
	}
}

// Input is everything a single run reads from the source stores
type Input struct {
	Sales         []domain.SalesRecord
	Inventory     []domain.InventoryItem
	MalformedRows int       // Rows the ledger source could not parse
	AsOf          time.Time // Reference instant for expiry calculations
	HorizonDays   int
}

// ProductAggregate is the per-product roll-up of the sales ledger
type ProductAggregate struct {
	ProductCode   string
	ProductName   string
	TotalQuantity float64
	ActiveDays    int
	UnitPrice     float64
	Quantities    []float64
	MonthlyTotals [12]float64 // index 0 = January, summed across years
	LastSaleDate  time.Time

	priceDate time.Time
}

// DemandStats holds the demand statistics of one product
type DemandStats struct {
	AvgDailyDemand float64
	StdDev         float64
	CV             float64
	Consistency    domain.Consistency
	Trend          domain.TrendDirection
}

// Result is the output of a forecast run
type Result struct {
	Forecasts []domain.SKUForecast
	Summary   domain.ForecastSummary
}

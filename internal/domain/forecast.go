package domain

import "time"

// Action selects what a forecast request computes
type Action string

const (
	ActionFullForecast Action = "full_forecast"
	ActionOptimize     Action = "optimize"
)

// ABCClass is the revenue-based Pareto class of a product
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// StockSpeed is the turnover classification of a product
type StockSpeed string

const (
	SpeedFast StockSpeed = "Fast"
	SpeedSlow StockSpeed = "Slow"
	SpeedDead StockSpeed = "Dead"
)

// StockStatus is the overall replenishment urgency of a product
type StockStatus string

const (
	StatusCritical StockStatus = "CRITICAL"
	StatusLow      StockStatus = "LOW"
	StatusOK       StockStatus = "OK"
)

// TrendDirection compares recent monthly demand against the months before it
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Consistency buckets the coefficient of variation of daily demand
type Consistency string

const (
	ConsistencyHigh   Consistency = "high"
	ConsistencyMedium Consistency = "medium"
	ConsistencyLow    Consistency = "low"
)

// PriorityTier is the purchase-plan tier an item is funded from
type PriorityTier string

const (
	TierEssential   PriorityTier = "essential"
	TierRecommended PriorityTier = "recommended"
	TierOptional    PriorityTier = "optional"
)

// NoStockoutDays is reported as days until stockout for products without demand
const NoStockoutDays = 9999

// SKUForecast is the per-product result of a forecast run
type SKUForecast struct {
	// Identity
	ProductCode string     `json:"product_code"`
	ProductName string     `json:"product_name"`
	GenericName string     `json:"generic_name"`
	DosageForm  string     `json:"dosage_form"`
	Strength    string     `json:"strength"`
	Supplier    string     `json:"supplier"`
	ExpiryDate  *time.Time `json:"expiry_date"`

	// Stock levers
	CurrentStock int  `json:"current_stock"`
	MinStock     int  `json:"min_stock"`
	MaxStock     *int `json:"max_stock"`

	// Economics
	PurchasePrice float64 `json:"purchase_price"`
	SellingPrice  float64 `json:"selling_price"`
	Margin        float64 `json:"margin"`
	TotalRevenue  float64 `json:"total_revenue"`

	// Forecast outputs
	AvgDailyDemand      float64 `json:"avg_daily_demand"`
	HorizonDays         int     `json:"horizon_days"`
	ForecastDemand      float64 `json:"forecast_demand"`
	LeadTimeDays        int     `json:"lead_time_days"`
	SafetyStock         float64 `json:"safety_stock"`
	ReorderPoint        float64 `json:"reorder_point"`
	RecommendedOrderQty int     `json:"recommended_order_qty"`

	// Classification
	ABCClass   ABCClass    `json:"abc_class"`
	StockSpeed StockSpeed  `json:"stock_speed"`
	Status     StockStatus `json:"status"`

	// Risk
	StockoutProbability float64 `json:"stockout_probability"`
	DaysUntilStockout   float64 `json:"days_until_stockout"`
	ExpiryRisk          bool    `json:"expiry_risk"`
	ExpiryRiskReason    string  `json:"expiry_risk_reason"`

	// Trend
	Trend        TrendDirection `json:"trend"`
	MonthlyTrend [12]float64    `json:"monthly_trend"`
	StdDev       float64        `json:"std_dev"`
	CV           float64        `json:"cv"`
	Consistency  Consistency    `json:"consistency"`
	ActiveDays   int            `json:"active_days"`
}

// PurchaseLine is one funded item of a purchase plan
type PurchaseLine struct {
	ProductCode        string       `json:"product_code"`
	ProductName        string       `json:"product_name"`
	Supplier           string       `json:"supplier"`
	Quantity           int          `json:"quantity"`
	UnitCost           float64      `json:"unit_cost"`
	Cost               float64      `json:"cost"`
	MarginContribution float64      `json:"margin_contribution"`
	Priority           PriorityTier `json:"priority"`
}

// OptimizationResult is a budget-constrained purchase plan
type OptimizationResult struct {
	Items           []PurchaseLine `json:"items"`
	Budget          float64        `json:"budget"`
	TotalCost       float64        `json:"total_cost"`
	RemainingBudget float64        `json:"remaining_budget"`
	TotalMargin     float64        `json:"total_margin"`
	ItemCount       int            `json:"item_count"`
}

// ABCDistribution counts products per ABC class
type ABCDistribution struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
}

// SpeedDistribution counts products per stock speed
type SpeedDistribution struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
	Dead int `json:"dead"`
}

// ForecastSummary aggregates counts over all forecasts of a run
type ForecastSummary struct {
	TotalProducts           int               `json:"total_products"`
	CriticalCount           int               `json:"critical_count"`
	LowCount                int               `json:"low_count"`
	OKCount                 int               `json:"ok_count"`
	ExpiryRiskCount         int               `json:"expiry_risk_count"`
	ABCDistribution         ABCDistribution   `json:"abc_distribution"`
	SpeedDistribution       SpeedDistribution `json:"speed_distribution"`
	TotalRevenue            float64           `json:"total_revenue"`
	TotalDataPoints         int               `json:"total_data_points"`
	MissingInventoryRecords int               `json:"missing_inventory_records"`
	MalformedSalesRows      int               `json:"malformed_sales_rows"`
	GeneratedAt             time.Time         `json:"generated_at"`
}

// ForecastRequest is the inbound request of the forecast endpoint
type ForecastRequest struct {
	Action      Action   `json:"action"`
	HorizonDays int      `json:"horizon_days,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
}

// ForecastResponse is the outbound result of a forecast run
type ForecastResponse struct {
	Success      bool                `json:"success"`
	RunID        string              `json:"run_id,omitempty"`
	Results      []SKUForecast       `json:"results,omitempty"`
	Optimization *OptimizationResult `json:"optimization"`
	Summary      *ForecastSummary    `json:"summary,omitempty"`
	Error        string              `json:"error,omitempty"`
	Message      string              `json:"message,omitempty"`
}

// ForecastSnapshot is the latest persisted set of forecasts
type ForecastSnapshot struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Results     []SKUForecast `json:"results"`
}

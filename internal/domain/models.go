package domain

import "time"

// SalesRecord is a single row of the sales ledger
type SalesRecord struct {
	Date        time.Time `json:"date" db:"sale_date"`
	ProductCode string    `json:"product_code" db:"product_code"`
	ProductName string    `json:"product_name" db:"product_name"`
	Quantity    float64   `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
}

// InventoryItem is the catalog record for a stockable product.
// Nil MinStock/MaxStock/LeadTimeDays mean "not set" and fall back to configured defaults.
type InventoryItem struct {
	ProductCode   string     `json:"product_code" db:"product_code"`
	Name          string     `json:"name" db:"name"`
	GenericName   string     `json:"generic_name" db:"generic_name"`
	DosageForm    string     `json:"dosage_form" db:"dosage_form"`
	Strength      string     `json:"strength" db:"strength"`
	Supplier      string     `json:"supplier" db:"supplier"`
	CurrentStock  int        `json:"current_stock" db:"current_stock"`
	MinStock      *int       `json:"min_stock,omitempty" db:"min_stock"`
	MaxStock      *int       `json:"max_stock,omitempty" db:"max_stock"`
	PurchasePrice float64    `json:"purchase_price" db:"purchase_price"`
	SellingPrice  float64    `json:"selling_price" db:"selling_price"`
	LeadTimeDays  *int       `json:"lead_time_days,omitempty" db:"lead_time_days"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
}

// ForecastRun is one execution of the forecast pipeline
type ForecastRun struct {
	ID           string     `json:"id" db:"id"`
	Action       Action     `json:"action" db:"action"`
	HorizonDays  int        `json:"horizon_days" db:"horizon_days"`
	Budget       *float64   `json:"budget,omitempty" db:"budget"`
	Status       RunStatus  `json:"status" db:"status"`
	ProductCount int        `json:"product_count" db:"product_count"`
	DataPoints   int        `json:"data_points" db:"data_points"`
	ErrorCode    string     `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// RunStatus represents the state of a forecast run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

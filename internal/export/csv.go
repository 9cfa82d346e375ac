package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// csvColumns fixes the column order of forecast exports
var csvColumns = []string{
	"product_code", "product_name", "generic_name", "supplier",
	"current_stock", "min_stock", "max_stock",
	"purchase_price", "selling_price", "margin",
	"avg_daily_demand", "horizon_days", "forecast_demand",
	"lead_time_days", "safety_stock", "reorder_point", "recommended_order_qty",
	"abc_class", "stock_speed", "status",
	"stockout_probability", "days_until_stockout",
	"expiry_date", "expiry_risk", "expiry_risk_reason",
	"trend", "std_dev", "cv", "consistency", "total_revenue",
}

// WriteCSV writes forecasts as CSV with a header row
func WriteCSV(w io.Writer, forecasts []domain.SKUForecast) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvColumns); err != nil {
		return err
	}

	for i := range forecasts {
		if err := writer.Write(csvRecord(&forecasts[i])); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes forecasts to path, replacing any existing file
func WriteCSVFile(path string, forecasts []domain.SKUForecast) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteCSV(file, forecasts); err != nil {
		file.Close()
		return fmt.Errorf("failed to write CSV %s: %w", path, err)
	}
	return file.Close()
}

func csvRecord(f *domain.SKUForecast) []string {
	maxStock := ""
	if f.MaxStock != nil {
		maxStock = strconv.Itoa(*f.MaxStock)
	}
	expiry := ""
	if f.ExpiryDate != nil {
		expiry = f.ExpiryDate.Format("2006-01-02")
	}

	return []string{
		f.ProductCode, f.ProductName, f.GenericName, f.Supplier,
		strconv.Itoa(f.CurrentStock), strconv.Itoa(f.MinStock), maxStock,
		formatFloat(f.PurchasePrice), formatFloat(f.SellingPrice), formatFloat(f.Margin),
		formatFloat(f.AvgDailyDemand), strconv.Itoa(f.HorizonDays), formatFloat(f.ForecastDemand),
		strconv.Itoa(f.LeadTimeDays), formatFloat(f.SafetyStock), formatFloat(f.ReorderPoint), strconv.Itoa(f.RecommendedOrderQty),
		string(f.ABCClass), string(f.StockSpeed), string(f.Status),
		formatFloat(f.StockoutProbability), formatFloat(f.DaysUntilStockout),
		expiry, strconv.FormatBool(f.ExpiryRisk), f.ExpiryRiskReason,
		string(f.Trend), formatFloat(f.StdDev), formatFloat(f.CV), string(f.Consistency), formatFloat(f.TotalRevenue),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

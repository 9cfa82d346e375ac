package forecast

import (
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// Aggregation is the ledger rolled up per product code
type Aggregation struct {
	Products      map[string]*ProductAggregate
	DataPoints    int       // Rows that contributed to a product
	MalformedRows int       // Rows skipped for a missing code or date
	LatestSale    time.Time // Latest sale date across the whole ledger
}

// Aggregate groups sales rows by product code. Rows with a zero quantity still
// count as an active day.
func Aggregate(rows []domain.SalesRecord) *Aggregation {
	agg := &Aggregation{
		Products: make(map[string]*ProductAggregate),
	}

	for _, row := range rows {
		code := strings.TrimSpace(row.ProductCode)
		if code == "" || row.Date.IsZero() {
			agg.MalformedRows++
			continue
		}

		p, ok := agg.Products[code]
		if !ok {
			p = &ProductAggregate{ProductCode: code}
			agg.Products[code] = p
		}

		if name := strings.TrimSpace(row.ProductName); name != "" {
			p.ProductName = name
		}

		p.TotalQuantity += row.Quantity
		p.ActiveDays++
		p.Quantities = append(p.Quantities, row.Quantity)
		p.MonthlyTotals[row.Date.Month()-1] += row.Quantity

		// Most recent non-zero price wins; equal dates keep the later row.
		if row.UnitPrice > 0 && !row.Date.Before(p.priceDate) {
			p.UnitPrice = row.UnitPrice
			p.priceDate = row.Date
		}

		if row.Date.After(p.LastSaleDate) {
			p.LastSaleDate = row.Date
		}
		if row.Date.After(agg.LatestSale) {
			agg.LatestSale = row.Date
		}

		agg.DataPoints++
	}

	return agg
}

// Codes returns the aggregated product codes in ascending order
func (a *Aggregation) Codes() []string {
	codes := make([]string, 0, len(a.Products))
	for code := range a.Products {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

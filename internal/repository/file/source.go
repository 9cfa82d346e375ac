package file

import (
	"context"
	"fmt"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/andresuchdata/autopo-forecast/internal/repository"
	"github.com/rs/zerolog/log"
)

// Source reads the sales ledger and the catalog from CSV or XLSX exports
type Source struct {
	salesPath   string
	catalogPath string
}

func NewSource(salesPath, catalogPath string) *Source {
	return &Source{salesPath: salesPath, catalogPath: catalogPath}
}

// LoadSales parses the ledger file. Rows with an unreadable date or number
// are skipped and counted in SalesLedger.Malformed.
func (s *Source) LoadSales(ctx context.Context) (*repository.SalesLedger, error) {
	t, err := readTable(s.salesPath)
	if err != nil {
		return nil, err
	}
	return parseSales(ctx, t)
}

func parseSales(ctx context.Context, t *table) (*repository.SalesLedger, error) {
	idxDate := t.colIndex("date", "sale_date", "tanggal", "transaction date")
	idxCode := t.colIndex("product_code", "code", "sku", "kode", "kode produk")
	idxName := t.colIndex("product_name", "name", "nama", "nama produk")
	idxQty := t.colIndex("quantity", "qty", "jumlah")
	idxPrice := t.colIndex("unit_price", "price", "harga")

	if idxDate < 0 || idxCode < 0 || idxQty < 0 {
		return nil, fmt.Errorf("sales file needs date, product code and quantity columns, got %v", t.header)
	}

	ledger := &repository.SalesLedger{Records: make([]domain.SalesRecord, 0, len(t.rows))}
	for _, record := range t.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		date, okDate := parseDate(cell(record, idxDate))
		qty, okQty := parseNumber(cell(record, idxQty))
		price, okPrice := parseNumber(cell(record, idxPrice))
		code := cell(record, idxCode)
		if !okDate || !okQty || !okPrice || code == "" {
			ledger.Malformed++
			continue
		}

		ledger.Records = append(ledger.Records, domain.SalesRecord{
			Date:        date,
			ProductCode: code,
			ProductName: cell(record, idxName),
			Quantity:    qty,
			UnitPrice:   price,
		})
	}

	if ledger.Malformed > 0 {
		log.Warn().Int("malformed", ledger.Malformed).Int("rows", len(t.rows)).Msg("skipped malformed sales rows")
	}

	return ledger, nil
}

func (s *Source) LoadInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	t, err := readTable(s.catalogPath)
	if err != nil {
		return nil, err
	}
	return parseInventory(ctx, t)
}

func parseInventory(ctx context.Context, t *table) ([]domain.InventoryItem, error) {
	idxCode := t.colIndex("product_code", "code", "sku", "kode", "kode produk")
	idxName := t.colIndex("name", "product_name", "nama", "nama produk")
	idxGeneric := t.colIndex("generic_name", "generic")
	idxForm := t.colIndex("dosage_form", "form", "bentuk")
	idxStrength := t.colIndex("strength", "dosis")
	idxSupplier := t.colIndex("supplier", "vendor")
	idxStock := t.colIndex("current_stock", "stock", "stok")
	idxMin := t.colIndex("min_stock", "minimum stock")
	idxMax := t.colIndex("max_stock", "maximum stock")
	idxCost := t.colIndex("purchase_price", "cost", "hpp")
	idxPrice := t.colIndex("selling_price", "price", "harga")
	idxLead := t.colIndex("lead_time_days", "lead_time", "lead time")
	idxExpiry := t.colIndex("expiry_date", "expiry", "expired", "ed")

	if idxCode < 0 {
		return nil, fmt.Errorf("catalog file needs a product code column, got %v", t.header)
	}

	items := make([]domain.InventoryItem, 0, len(t.rows))
	skipped := 0
	for _, record := range t.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code := cell(record, idxCode)
		if code == "" {
			skipped++
			continue
		}

		stock, okStock := parseNumber(cell(record, idxStock))
		cost, okCost := parseNumber(cell(record, idxCost))
		price, okPrice := parseNumber(cell(record, idxPrice))
		minStock, okMin := parseOptionalInt(cell(record, idxMin))
		maxStock, okMax := parseOptionalInt(cell(record, idxMax))
		lead, okLead := parseOptionalInt(cell(record, idxLead))
		if !okStock || !okCost || !okPrice || !okMin || !okMax || !okLead {
			skipped++
			continue
		}

		item := domain.InventoryItem{
			ProductCode:   code,
			Name:          cell(record, idxName),
			GenericName:   cell(record, idxGeneric),
			DosageForm:    cell(record, idxForm),
			Strength:      cell(record, idxStrength),
			Supplier:      cell(record, idxSupplier),
			CurrentStock:  int(stock),
			MinStock:      minStock,
			MaxStock:      maxStock,
			PurchasePrice: cost,
			SellingPrice:  price,
			LeadTimeDays:  lead,
		}
		if expiry, ok := parseDate(cell(record, idxExpiry)); ok {
			item.ExpiryDate = &expiry
		}

		items = append(items, item)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("skipped unreadable catalog rows")
	}

	return items, nil
}

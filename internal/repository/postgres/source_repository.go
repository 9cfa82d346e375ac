package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/andresuchdata/autopo-forecast/internal/repository"
)

// SourceRepository reads the sales ledger and the catalog tables
type SourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func (r *SourceRepository) LoadSales(ctx context.Context) (*repository.SalesLedger, error) {
	query := `
		SELECT sale_date, product_code, product_name, quantity, unit_price
		FROM sales_records
		ORDER BY sale_date, id
	`

	var records []domain.SalesRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("error loading sales records: %w", err)
	}

	return &repository.SalesLedger{Records: records}, nil
}

func (r *SourceRepository) LoadInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	query := `
		SELECT product_code, name, generic_name, dosage_form, strength, supplier,
		       current_stock, min_stock, max_stock, purchase_price, selling_price,
		       lead_time_days, expiry_date
		FROM inventory_items
		ORDER BY product_code
	`

	var items []domain.InventoryItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("error loading inventory items: %w", err)
	}

	return items, nil
}

// InsertSales appends ledger rows in one transaction
func (r *SourceRepository) InsertSales(ctx context.Context, records []domain.SalesRecord) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_records (sale_date, product_code, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("prepare sales insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, rec.Date, rec.ProductCode, rec.ProductName, rec.Quantity, rec.UnitPrice); err != nil {
				return fmt.Errorf("insert sale %s on %s: %w", rec.ProductCode, rec.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// UpsertInventory writes catalog records keyed by product code
func (r *SourceRepository) UpsertInventory(ctx context.Context, items []domain.InventoryItem) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO inventory_items (
				product_code, name, generic_name, dosage_form, strength, supplier,
				current_stock, min_stock, max_stock, purchase_price, selling_price,
				lead_time_days, expiry_date, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
			ON CONFLICT (product_code)
			DO UPDATE SET
				name = EXCLUDED.name,
				generic_name = EXCLUDED.generic_name,
				dosage_form = EXCLUDED.dosage_form,
				strength = EXCLUDED.strength,
				supplier = EXCLUDED.supplier,
				current_stock = EXCLUDED.current_stock,
				min_stock = EXCLUDED.min_stock,
				max_stock = EXCLUDED.max_stock,
				purchase_price = EXCLUDED.purchase_price,
				selling_price = EXCLUDED.selling_price,
				lead_time_days = EXCLUDED.lead_time_days,
				expiry_date = EXCLUDED.expiry_date,
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("prepare inventory upsert: %w", err)
		}
		defer stmt.Close()

		for _, it := range items {
			_, err := stmt.ExecContext(ctx,
				it.ProductCode, it.Name, it.GenericName, it.DosageForm, it.Strength, it.Supplier,
				it.CurrentStock, it.MinStock, it.MaxStock, it.PurchasePrice, it.SellingPrice,
				it.LeadTimeDays, it.ExpiryDate,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert inventory item %s: %w", it.ProductCode, err)
			}
		}
		return nil
	})
}

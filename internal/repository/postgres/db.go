package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB creates a new database connection pool
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}

	// Configure connection pool
	db.SetMaxOpenConns(maxConns + 5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return Wrap(db, maxConns), nil
}

// Wrap adapts an existing connection, limiting concurrent transactions to maxTx
func Wrap(db *sqlx.DB, maxTx int) *DB {
	if maxTx <= 0 {
		maxTx = 1
	}
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(int64(maxTx)),
	}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	// Acquire semaphore
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Migrate creates the forecast tables when they do not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	schema := `
	-- Sales ledger (append-only, written by importers)
	CREATE TABLE IF NOT EXISTS sales_records (
		id BIGSERIAL PRIMARY KEY,
		sale_date DATE NOT NULL,
		product_code TEXT NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit_price DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sales_records_product
		ON sales_records(product_code);

	-- Catalog
	CREATE TABLE IF NOT EXISTS inventory_items (
		product_code TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		generic_name TEXT NOT NULL DEFAULT '',
		dosage_form TEXT NOT NULL DEFAULT '',
		strength TEXT NOT NULL DEFAULT '',
		supplier TEXT NOT NULL DEFAULT '',
		current_stock INTEGER NOT NULL DEFAULT 0,
		min_stock INTEGER,
		max_stock INTEGER,
		purchase_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		selling_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		lead_time_days INTEGER,
		expiry_date DATE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Latest forecast per product
	CREATE TABLE IF NOT EXISTS sku_forecasts (
		product_code TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	);

	-- Run history
	CREATE TABLE IF NOT EXISTS forecast_runs (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		horizon_days INTEGER NOT NULL,
		budget DOUBLE PRECISION,
		status TEXT NOT NULL,
		product_count INTEGER NOT NULL DEFAULT 0,
		data_points INTEGER NOT NULL DEFAULT 0,
		error_code TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_forecast_runs_started
		ON forecast_runs(started_at DESC);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate forecast schema: %w", err)
	}
	return nil
}

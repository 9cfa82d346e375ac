package repository

import (
	"context"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// SalesLedger is the sales history read from a source, with the rows the
// source could not parse already counted.
type SalesLedger struct {
	Records   []domain.SalesRecord
	Malformed int
}

type SalesRepository interface {
	LoadSales(ctx context.Context) (*SalesLedger, error)
}

type InventoryRepository interface {
	LoadInventory(ctx context.Context) ([]domain.InventoryItem, error)
}

// SnapshotRepository persists the latest forecast per product code. Replace
// must be atomic: readers see either the previous snapshot or the new one.
type SnapshotRepository interface {
	ReplaceSnapshot(ctx context.Context, snapshot *domain.ForecastSnapshot) error
	// LatestSnapshot returns domain.ErrSnapshotNotFound before the first run
	LatestSnapshot(ctx context.Context) (*domain.ForecastSnapshot, error)
}

type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.ForecastRun) error
	UpdateRun(ctx context.Context, run *domain.ForecastRun) error
	ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error)
}

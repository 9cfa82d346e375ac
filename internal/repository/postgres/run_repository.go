package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// RunRepository handles database operations for forecast run tracking
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun creates a new forecast run record
func (r *RunRepository) CreateRun(ctx context.Context, run *domain.ForecastRun) error {
	query := `
		INSERT INTO forecast_runs (
			id, action, horizon_days, budget, status, started_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.ID, run.Action, run.HorizonDays, run.Budget, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create forecast run: %w", err)
	}
	return nil
}

// UpdateRun records the outcome of a run
func (r *RunRepository) UpdateRun(ctx context.Context, run *domain.ForecastRun) error {
	query := `
		UPDATE forecast_runs
		SET status = $1, product_count = $2, data_points = $3,
		    error_code = $4, error_message = $5, completed_at = $6
		WHERE id = $7
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.ProductCount, run.DataPoints,
		run.ErrorCode, run.ErrorMessage, run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update forecast run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, action, horizon_days, budget, status, product_count, data_points,
		       error_code, error_message, started_at, completed_at
		FROM forecast_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	runs := []domain.ForecastRun{}
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("error listing forecast runs: %w", err)
	}
	return runs, nil
}

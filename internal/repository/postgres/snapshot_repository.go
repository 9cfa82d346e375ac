package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// snapshotLockKey serializes snapshot writers across processes
const snapshotLockKey int64 = 0x5f6f7265636173

type SnapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ReplaceSnapshot swaps the whole sku_forecasts table inside one transaction.
// Readers keep seeing the previous rows until commit.
func (r *SnapshotRepository) ReplaceSnapshot(ctx context.Context, snapshot *domain.ForecastSnapshot) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, snapshotLockKey); err != nil {
			return fmt.Errorf("lock snapshot: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sku_forecasts`); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sku_forecasts (product_code, run_id, generated_at, payload)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("prepare snapshot insert: %w", err)
		}
		defer stmt.Close()

		for i := range snapshot.Results {
			f := &snapshot.Results[i]
			payload, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("encode forecast %s: %w", f.ProductCode, err)
			}
			if _, err := stmt.ExecContext(ctx, f.ProductCode, snapshot.RunID, snapshot.GeneratedAt, payload); err != nil {
				return fmt.Errorf("insert forecast %s: %w", f.ProductCode, err)
			}
		}
		return nil
	})
}

func (r *SnapshotRepository) LatestSnapshot(ctx context.Context) (*domain.ForecastSnapshot, error) {
	query := `
		SELECT run_id, generated_at, payload
		FROM sku_forecasts
		ORDER BY product_code
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := &domain.ForecastSnapshot{}
	for rows.Next() {
		var (
			runID       string
			generatedAt time.Time
			payload     []byte
		)
		if err := rows.Scan(&runID, &generatedAt, &payload); err != nil {
			return nil, fmt.Errorf("error scanning snapshot row: %w", err)
		}

		var f domain.SKUForecast
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("decode forecast payload: %w", err)
		}

		snapshot.RunID = runID
		snapshot.GeneratedAt = generatedAt
		snapshot.Results = append(snapshot.Results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(snapshot.Results) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

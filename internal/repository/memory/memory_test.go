package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStore(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	_, err := store.LatestSnapshot(ctx)
	assert.True(t, errors.Is(err, domain.ErrSnapshotNotFound))

	results := []domain.SKUForecast{{ProductCode: "A"}}
	require.NoError(t, store.ReplaceSnapshot(ctx, &domain.ForecastSnapshot{RunID: "r1", Results: results}))

	results[0].ProductCode = "mutated"

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", latest.RunID)
	assert.Equal(t, "A", latest.Results[0].ProductCode)
}

func TestRunStore(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRun(ctx, &domain.ForecastRun{ID: "r1", Status: domain.RunStatusProcessing}))
	require.NoError(t, store.CreateRun(ctx, &domain.ForecastRun{ID: "r2", Status: domain.RunStatusProcessing}))
	require.NoError(t, store.UpdateRun(ctx, &domain.ForecastRun{ID: "r1", Status: domain.RunStatusCompleted}))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, domain.RunStatusCompleted, runs[1].Status)

	runs, err = store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
)

// SnapshotStore holds the latest snapshot in process memory
type SnapshotStore struct {
	latest atomic.Pointer[domain.ForecastSnapshot]
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) ReplaceSnapshot(ctx context.Context, snapshot *domain.ForecastSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Store a private copy so callers can't mutate the published results
	cp := *snapshot
	cp.Results = append([]domain.SKUForecast(nil), snapshot.Results...)
	s.latest.Store(&cp)
	return nil
}

func (s *SnapshotStore) LatestSnapshot(ctx context.Context) (*domain.ForecastSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.latest.Load()
	if snap == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

// RunStore keeps run history in memory, newest first
type RunStore struct {
	mu   sync.RWMutex
	runs []domain.ForecastRun
}

func NewRunStore() *RunStore {
	return &RunStore{}
}

func (s *RunStore) CreateRun(ctx context.Context, run *domain.ForecastRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append([]domain.ForecastRun{*run}, s.runs...)
	return nil
}

func (s *RunStore) UpdateRun(ctx context.Context, run *domain.ForecastRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = *run
			return nil
		}
	}
	s.runs = append([]domain.ForecastRun{*run}, s.runs...)
	return nil
}

func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]domain.ForecastRun, limit)
	copy(out, s.runs[:limit])
	return out, nil
}

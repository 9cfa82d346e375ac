package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/cache"
	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/andresuchdata/autopo-forecast/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultHookTimeout = 30 * time.Second

// SnapshotExporter archives a persisted snapshot outside the primary store
type SnapshotExporter interface {
	Export(ctx context.Context, snapshot *domain.ForecastSnapshot) (string, error)
}

// Dependencies wires a ForecastService. Cache, Runs and Exporter are optional.
type Dependencies struct {
	Engine      *forecast.Engine
	Sales       repository.SalesRepository
	Inventory   repository.InventoryRepository
	Snapshots   repository.SnapshotRepository
	Runs        repository.RunRepository
	Cache       cache.ForecastCache
	Exporter    SnapshotExporter
	HookTimeout time.Duration
}

// ForecastService loads the source stores, runs the engine and publishes the
// resulting snapshot.
type ForecastService struct {
	engine      *forecast.Engine
	sales       repository.SalesRepository
	inventory   repository.InventoryRepository
	snapshots   repository.SnapshotRepository
	runs        repository.RunRepository
	cache       cache.ForecastCache
	exporter    SnapshotExporter
	hookTimeout time.Duration

	latest singleflight.Group
	hooks  sync.WaitGroup
	now    func() time.Time

	// cacheMu orders cache writes; generation counts published snapshots
	cacheMu    sync.Mutex
	generation uint64
}

func NewForecastService(deps Dependencies) *ForecastService {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopForecastCache()
	}
	if deps.HookTimeout <= 0 {
		deps.HookTimeout = defaultHookTimeout
	}

	return &ForecastService{
		engine:      deps.Engine,
		sales:       deps.Sales,
		inventory:   deps.Inventory,
		snapshots:   deps.Snapshots,
		runs:        deps.Runs,
		cache:       deps.Cache,
		exporter:    deps.Exporter,
		hookTimeout: deps.HookTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one forecast request. Failures come back as *domain.ForecastError.
func (s *ForecastService) Run(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error) {
	if err := req.Validate(s.engine.Config().HorizonDays); err != nil {
		return nil, domain.NewForecastError(err)
	}

	run := &domain.ForecastRun{
		ID:          uuid.NewString(),
		Action:      req.Action,
		HorizonDays: req.HorizonDays,
		Budget:      req.Budget,
		Status:      domain.RunStatusProcessing,
		StartedAt:   s.now(),
	}
	s.recordRunStart(ctx, run)

	logger := log.With().Str("run_id", run.ID).Str("action", string(req.Action)).Logger()
	logger.Info().Int("horizon_days", req.HorizonDays).Msg("forecast run started")

	resp, snapshot, err := s.execute(ctx, run, req)
	if err != nil {
		fe := domain.NewForecastError(err)
		s.recordRunEnd(run, domain.RunStatusFailed, fe)
		logger.Error().Err(err).Str("code", fe.Code).Msg("forecast run failed")
		return nil, fe
	}

	s.recordRunEnd(run, domain.RunStatusCompleted, nil)
	s.publish(snapshot)
	s.afterPersist(snapshot)

	logger.Info().
		Int("products", resp.Summary.TotalProducts).
		Int("critical", resp.Summary.CriticalCount).
		Int("missing_inventory", resp.Summary.MissingInventoryRecords).
		Int("malformed_rows", resp.Summary.MalformedSalesRows).
		Dur("elapsed", s.now().Sub(run.StartedAt)).
		Msg("forecast run completed")

	return resp, nil
}

func (s *ForecastService) execute(ctx context.Context, run *domain.ForecastRun, req domain.ForecastRequest) (*domain.ForecastResponse, *domain.ForecastSnapshot, error) {
	var (
		ledger *repository.SalesLedger
		items  []domain.InventoryItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledger, err = s.sales.LoadSales(gctx)
		if err != nil {
			return fmt.Errorf("load sales ledger: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = s.inventory.LoadInventory(gctx)
		if err != nil {
			return fmt.Errorf("load inventory: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	result, err := s.engine.Run(ctx, forecast.Input{
		Sales:         ledger.Records,
		Inventory:     items,
		MalformedRows: ledger.Malformed,
		AsOf:          run.StartedAt,
		HorizonDays:   req.HorizonDays,
	})
	if err != nil {
		return nil, nil, err
	}

	resp := &domain.ForecastResponse{
		Success: true,
		RunID:   run.ID,
		Results: result.Forecasts,
		Summary: &result.Summary,
	}
	if req.Action == domain.ActionOptimize {
		plan := forecast.Optimize(result.Forecasts, *req.Budget)
		resp.Optimization = &plan
	}

	snapshot := &domain.ForecastSnapshot{
		RunID:       run.ID,
		GeneratedAt: result.Summary.GeneratedAt,
		Results:     result.Forecasts,
	}
	if err := s.snapshots.ReplaceSnapshot(ctx, snapshot); err != nil {
		return nil, nil, fmt.Errorf("persist snapshot: %w", err)
	}

	run.ProductCount = result.Summary.TotalProducts
	run.DataPoints = result.Summary.TotalDataPoints

	return resp, snapshot, nil
}

// publish makes a freshly persisted snapshot the cached latest before Run
// returns, so no reader that starts afterwards sees the previous run.
func (s *ForecastService) publish(snapshot *domain.ForecastSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++

	if err := s.cache.SetLatest(ctx, snapshot); err != nil {
		log.Warn().Err(err).Str("run_id", snapshot.RunID).Msg("forecast: cache set latest failed, invalidating")
		if err := s.cache.InvalidateAll(ctx); err != nil {
			log.Error().Err(err).Msg("forecast: cache invalidation failed, latest may be stale until ttl")
		}
	}
}

// afterPersist runs the side channels of a successful run. They get their own
// deadline and never hold up the response.
func (s *ForecastService) afterPersist(snapshot *domain.ForecastSnapshot) {
	if s.exporter != nil {
		s.goHook("snapshot export", func(ctx context.Context) error {
			key, err := s.exporter.Export(ctx, snapshot)
			if err == nil {
				log.Info().Str("run_id", snapshot.RunID).Str("key", key).Msg("snapshot exported")
			}
			return err
		})
	}
}

func (s *ForecastService) goHook(name string, fn func(ctx context.Context) error) {
	s.hooks.Add(1)
	go func() {
		defer s.hooks.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.hookTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("hook", name).Msg("post-run hook failed")
		}
	}()
}

// WaitForHooks blocks until in-flight post-run hooks finish
func (s *ForecastService) WaitForHooks() {
	s.hooks.Wait()
}

// Latest returns the persisted snapshot, served from cache when possible.
// Concurrent misses within one generation share a single store read.
func (s *ForecastService) Latest(ctx context.Context) (*domain.ForecastSnapshot, error) {
	if snapshot, ok, err := s.cache.GetLatest(ctx); err == nil && ok {
		return snapshot, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast: cache get latest failed")
	}

	s.cacheMu.Lock()
	gen := s.generation
	s.cacheMu.Unlock()

	v, err, _ := s.latest.Do(fmt.Sprintf("latest:%d", gen), func() (interface{}, error) {
		snapshot, err := s.snapshots.LatestSnapshot(ctx)
		if err != nil {
			return nil, err
		}

		s.cacheMu.Lock()
		defer s.cacheMu.Unlock()
		// a run published while we were reading; its snapshot is already cached
		if s.generation != gen {
			return snapshot, nil
		}
		if err := s.cache.SetLatest(ctx, snapshot); err != nil {
			log.Warn().Err(err).Msg("forecast: cache set latest failed")
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.ForecastSnapshot), nil
}

// ListRuns returns recent run history, newest first
func (s *ForecastService) ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	if s.runs == nil {
		return []domain.ForecastRun{}, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

func (s *ForecastService) recordRunStart(ctx context.Context, run *domain.ForecastRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("could not record forecast run")
	}
}

func (s *ForecastService) recordRunEnd(run *domain.ForecastRun, status domain.RunStatus, fe *domain.ForecastError) {
	if s.runs == nil {
		return
	}

	completed := s.now()
	run.Status = status
	run.CompletedAt = &completed
	if fe != nil {
		run.ErrorCode = fe.Code
		run.ErrorMessage = fe.Message
	}

	// the request context may already be cancelled when the run failed
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.runs.UpdateRun(ctx, run); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("could not update forecast run")
	}
}

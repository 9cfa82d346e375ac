package app

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/cache"
	"github.com/andresuchdata/autopo-forecast/internal/config"
	"github.com/andresuchdata/autopo-forecast/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/internal/repository/file"
	"github.com/andresuchdata/autopo-forecast/internal/repository/memory"
	"github.com/andresuchdata/autopo-forecast/internal/repository/postgres"
	"github.com/andresuchdata/autopo-forecast/internal/service"
	"github.com/andresuchdata/autopo-forecast/internal/storage"
	"github.com/rs/zerolog/log"
)

// App is a fully wired forecast service plus the resources it owns
type App struct {
	Service *service.ForecastService

	closers []func() error
}

// EngineConfig maps the configured tunables onto the engine
func EngineConfig(cfg config.ForecastConfig) forecast.Config {
	ec := forecast.DefaultConfig()
	if cfg.ServiceLevel > 0 && cfg.ServiceLevel < 1 {
		ec.ServiceLevel = cfg.ServiceLevel
	}
	if cfg.LeadTimeDays > 0 {
		ec.LeadTimeDays = cfg.LeadTimeDays
	}
	if cfg.HorizonDays > 0 {
		ec.HorizonDays = cfg.HorizonDays
	}
	if cfg.HighTurnThreshold > 0 {
		ec.HighTurnThreshold = cfg.HighTurnThreshold
	}
	if cfg.DeadDemandThreshold > 0 {
		ec.DeadDemandThreshold = cfg.DeadDemandThreshold
	}
	if cfg.ExpiryWindowDays > 0 {
		ec.ExpiryWindowDays = cfg.ExpiryWindowDays
	}
	if cfg.Workers > 0 {
		ec.Workers = cfg.Workers
	}
	ec.DefaultMinStock = cfg.DefaultMinStock
	ec.DefaultMaxStock = cfg.DefaultMaxStock
	return ec
}

// New wires the stores selected by cfg.App.DataSource into a ForecastService
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	deps := service.Dependencies{
		Engine:      forecast.NewEngine(EngineConfig(cfg.Forecast)),
		HookTimeout: time.Duration(cfg.Forecast.ExportTimeoutSeconds) * time.Second,
	}

	switch cfg.App.DataSource {
	case config.SourcePostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}

		source := postgres.NewSourceRepository(db)
		deps.Sales = source
		deps.Inventory = source
		deps.Snapshots = postgres.NewSnapshotRepository(db)
		deps.Runs = postgres.NewRunRepository(db)

	case config.SourceFile:
		source := file.NewSource(cfg.App.SalesFile, cfg.App.CatalogFile)
		snapshots, err := file.NewSnapshotStore(cfg.App.DataDir)
		if err != nil {
			return nil, err
		}
		deps.Sales = source
		deps.Inventory = source
		deps.Snapshots = snapshots
		deps.Runs = memory.NewRunStore()

	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.App.DataSource)
	}

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		// the cache only serves reads of the latest snapshot
		log.Warn().Err(err).Msg("forecast cache unavailable, continuing without it")
		forecastCache = cache.NewNoopForecastCache()
	}
	deps.Cache = forecastCache

	if cfg.Storage.Enabled {
		exporter, err := NewExporter(cfg.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Exporter = exporter
	}

	a.Service = service.NewForecastService(deps)
	return a, nil
}

// NewExporter builds the object-storage snapshot exporter
func NewExporter(cfg config.StorageConfig) (*storage.SnapshotExporter, error) {
	client, err := storage.NewMinioClient(storage.MinioConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewSnapshotExporter(client, cfg.Prefix), nil
}

// Close waits for pending post-run hooks and releases owned resources
func (a *App) Close() error {
	if a.Service != nil {
		a.Service.WaitForHooks()
	}

	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

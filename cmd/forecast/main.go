package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-forecast/internal/app"
	"github.com/andresuchdata/autopo-forecast/internal/config"
	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/andresuchdata/autopo-forecast/internal/export"
	"github.com/andresuchdata/autopo-forecast/internal/repository/file"
	"github.com/andresuchdata/autopo-forecast/internal/repository/postgres"
	"github.com/andresuchdata/autopo-forecast/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	conn, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.PingContext(c.Context); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db := postgres.Wrap(sqlx.NewDb(conn, "pgx"), 1)
	if err := db.Migrate(c.Context); err != nil {
		conn.Close()
		return err
	}

	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func main() {
	cfg := config.Load()

	cliApp := &cli.App{
		Name:  "forecast",
		Usage: "Demand forecasting and purchase planning",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   cfg.Log.Level,
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			return logger.Setup(logger.Options{Level: c.String("log-level"), File: cfg.Log.File})
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a forecast against the configured data source",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "action",
						Usage: "full_forecast or optimize",
						Value: string(domain.ActionFullForecast),
					},
					&cli.IntFlag{
						Name:  "horizon",
						Usage: "Forecast horizon in days (0 uses FORECAST_HORIZON_DAYS)",
					},
					&cli.Float64Flag{
						Name:  "budget",
						Usage: "Purchase budget, required for optimize",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "postgres or file",
						Value: cfg.App.DataSource,
					},
					&cli.StringFlag{
						Name:  "sales",
						Usage: "Sales ledger file (file source)",
						Value: cfg.App.SalesFile,
					},
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "Inventory catalog file (file source)",
						Value: cfg.App.CatalogFile,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Also write the per-product results to this CSV file",
					},
				},
				Action: func(c *cli.Context) error {
					return runForecast(c, cfg)
				},
			},
			{
				Name:  "import",
				Usage: "Load a sales ledger and inventory catalog file into Postgres",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "sales",
						Usage:   "Sales ledger CSV or XLSX",
						Value:   cfg.App.SalesFile,
						EnvVars: []string{"APP_SALES_FILE"},
					},
					&cli.StringFlag{
						Name:    "catalog",
						Usage:   "Inventory catalog CSV or XLSX",
						Value:   cfg.App.CatalogFile,
						EnvVars: []string{"APP_CATALOG_FILE"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: importFiles,
			},
			{
				Name:   "archives",
				Usage:  "List snapshots exported to object storage",
				Action: func(c *cli.Context) error {
					return listArchives(c, cfg)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("forecast command failed")
	}
}

func runForecast(c *cli.Context, cfg *config.Config) error {
	cfg.App.DataSource = c.String("source")
	cfg.App.SalesFile = c.String("sales")
	cfg.App.CatalogFile = c.String("catalog")

	application, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	req := domain.ForecastRequest{
		Action:      domain.Action(c.String("action")),
		HorizonDays: c.Int("horizon"),
	}
	if c.IsSet("budget") {
		budget := c.Float64("budget")
		req.Budget = &budget
	}

	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")

	resp, err := application.Service.Run(c.Context, req)
	if err != nil {
		fe := domain.NewForecastError(err)
		if encErr := encoder.Encode(domain.ForecastResponse{Error: fe.Code, Message: fe.Message}); encErr != nil {
			return encErr
		}
		return cli.Exit("", 1)
	}

	if path := c.String("output"); path != "" {
		if err := export.WriteCSVFile(path, resp.Results); err != nil {
			return err
		}
		logger.Log.Info().Str("path", path).Int("rows", len(resp.Results)).Msg("forecast CSV written")
	}

	return encoder.Encode(resp)
}

func importFiles(c *cli.Context) error {
	db, ok := c.Context.Value(dbKey{}).(*postgres.DB)
	if !ok {
		return fmt.Errorf("database connection not initialized")
	}
	repo := postgres.NewSourceRepository(db)
	source := file.NewSource(c.String("sales"), c.String("catalog"))

	ledger, err := source.LoadSales(c.Context)
	if err != nil {
		return err
	}
	if err := repo.InsertSales(c.Context, ledger.Records); err != nil {
		return err
	}
	logger.Log.Info().
		Int("rows", len(ledger.Records)).
		Int("malformed", ledger.Malformed).
		Msg("sales ledger imported")

	items, err := source.LoadInventory(c.Context)
	if err != nil {
		return err
	}
	if err := repo.UpsertInventory(c.Context, items); err != nil {
		return err
	}
	logger.Log.Info().Int("items", len(items)).Msg("inventory catalog imported")

	return nil
}

func listArchives(c *cli.Context, cfg *config.Config) error {
	if !cfg.Storage.Enabled {
		return fmt.Errorf("object storage is disabled (set STORAGE_ENABLED=true)")
	}

	exporter, err := app.NewExporter(cfg.Storage)
	if err != nil {
		return err
	}

	objects, err := exporter.Archived(c.Context)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		fmt.Fprintf(c.App.Writer, "%s\t%d\n", obj.Key, obj.Size)
	}
	logger.Log.Info().Int("objects", len(objects)).Str("bucket", cfg.Storage.Bucket).Msg("archived snapshots listed")
	return nil
}

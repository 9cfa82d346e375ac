package forecast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Engine turns a sales ledger and a stock snapshot into per-product forecasts.
// It holds configuration only; every run aggregates into its own local state.
type Engine struct {
	config     Config
	calculator *ReorderCalculator
}

// NewEngine creates a new forecast engine
func NewEngine(cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.ServiceLevel <= 0 || cfg.ServiceLevel >= 1 {
		cfg.ServiceLevel = defaults.ServiceLevel
	}
	if cfg.LeadTimeDays <= 0 {
		cfg.LeadTimeDays = defaults.LeadTimeDays
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = defaults.HorizonDays
	}
	if cfg.HighTurnThreshold <= 0 {
		cfg.HighTurnThreshold = defaults.HighTurnThreshold
	}
	if cfg.DeadDemandThreshold <= 0 {
		cfg.DeadDemandThreshold = defaults.DeadDemandThreshold
	}
	if cfg.ExpiryWindowDays <= 0 {
		cfg.ExpiryWindowDays = defaults.ExpiryWindowDays
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return &Engine{
		config:     cfg,
		calculator: NewReorderCalculator(cfg.ServiceLevel),
	}
}

// Config returns the effective engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// productInput pairs a product's ledger roll-up with its catalog record
type productInput struct {
	code      string
	aggregate *ProductAggregate
	item      *domain.InventoryItem
}

// Run executes Aggregator → Statistics → {ABC, Velocity, Safety Stock, Risk}
// and returns forecasts sorted by product code together with their summary.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	if len(in.Sales) == 0 {
		return nil, domain.ErrNoData
	}

	agg := Aggregate(in.Sales)
	if len(agg.Products) == 0 {
		return nil, fmt.Errorf("%w: all %d sales rows are malformed", domain.ErrNoData, agg.MalformedRows)
	}

	horizon := in.HorizonDays
	if horizon <= 0 {
		horizon = e.config.HorizonDays
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	log.Debug().
		Int("horizon_days", horizon).
		Float64("service_level", e.config.ServiceLevel).
		Float64("z", e.calculator.Z()).
		Int("workers", e.config.Workers).
		Msg("forecast: engine run")

	products, missing := joinCatalog(agg, in.Inventory)
	if missing > 0 {
		log.Warn().Int("count", missing).Msg("forecast: products without inventory record, using defaults")
	}

	// ABC needs every product's revenue, so it runs serially before the per-product map.
	revenues := make([]ProductRevenue, len(products))
	for i, p := range products {
		revenues[i] = ProductRevenue{ProductCode: p.code, Revenue: productRevenue(p)}
	}
	classes := ClassifyABC(revenues)

	refMonth := agg.LatestSale.Month()
	forecasts := make([]domain.SKUForecast, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i := range products {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			forecasts[i] = e.buildForecast(products[i], revenues[i].Revenue, classes[products[i].code], refMonth, horizon, asOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forecast cancelled: %w", err)
	}

	summary := Summarize(forecasts)
	summary.TotalDataPoints = agg.DataPoints
	summary.MissingInventoryRecords = missing
	summary.MalformedSalesRows = agg.MalformedRows + in.MalformedRows
	summary.GeneratedAt = asOf

	return &Result{Forecasts: forecasts, Summary: summary}, nil
}

// joinCatalog merges ledger products with catalog records. Catalog products
// without sales are kept so dead and expiring stock stays visible.
func joinCatalog(agg *Aggregation, inventory []domain.InventoryItem) ([]productInput, int) {
	catalog := make(map[string]*domain.InventoryItem, len(inventory))
	for i := range inventory {
		code := strings.TrimSpace(inventory[i].ProductCode)
		if code == "" {
			continue
		}
		catalog[code] = &inventory[i]
	}

	seen := make(map[string]struct{}, len(agg.Products)+len(catalog))
	products := make([]productInput, 0, len(agg.Products)+len(catalog))
	missing := 0

	for _, code := range agg.Codes() {
		p := agg.Products[code]
		item, ok := catalog[code]
		if !ok {
			missing++
		}
		products = append(products, productInput{code: code, aggregate: p, item: item})
		seen[code] = struct{}{}
	}
	for code, item := range catalog {
		if _, ok := seen[code]; ok {
			continue
		}
		products = append(products, productInput{
			code:      code,
			aggregate: &ProductAggregate{ProductCode: code, ProductName: item.Name},
			item:      item,
		})
	}

	sort.Slice(products, func(i, j int) bool { return products[i].code < products[j].code })
	return products, missing
}

func productRevenue(p productInput) float64 {
	price := p.aggregate.UnitPrice
	if price <= 0 && p.item != nil {
		price = p.item.SellingPrice
	}
	return p.aggregate.TotalQuantity * price
}

func (e *Engine) buildForecast(p productInput, revenue float64, class domain.ABCClass, refMonth time.Month, horizon int, asOf time.Time) domain.SKUForecast {
	stats := ComputeStats(p.aggregate, refMonth)

	f := domain.SKUForecast{
		ProductCode:  p.code,
		ProductName:  p.aggregate.ProductName,
		MinStock:     e.config.DefaultMinStock,
		LeadTimeDays: e.config.LeadTimeDays,
		SellingPrice: p.aggregate.UnitPrice,
		HorizonDays:  horizon,
	}
	if e.config.DefaultMaxStock > 0 {
		maxStock := e.config.DefaultMaxStock
		f.MaxStock = &maxStock
	}

	if item := p.item; item != nil {
		if item.Name != "" {
			f.ProductName = item.Name
		}
		f.GenericName = item.GenericName
		f.DosageForm = item.DosageForm
		f.Strength = item.Strength
		f.Supplier = item.Supplier
		f.ExpiryDate = item.ExpiryDate
		f.CurrentStock = item.CurrentStock
		if item.MinStock != nil {
			f.MinStock = *item.MinStock
		}
		if item.MaxStock != nil {
			maxStock := *item.MaxStock
			f.MaxStock = &maxStock
		}
		if item.LeadTimeDays != nil && *item.LeadTimeDays > 0 {
			f.LeadTimeDays = *item.LeadTimeDays
		}
		f.PurchasePrice = item.PurchasePrice
		if item.SellingPrice > 0 {
			f.SellingPrice = item.SellingPrice
		}
	}
	f.Margin = roundFloat(f.SellingPrice-f.PurchasePrice, 2)
	f.TotalRevenue = roundFloat(revenue, 2)

	reorder := e.calculator.Calculate(ReorderInputs{
		AvgDailyDemand: stats.AvgDailyDemand,
		StdDev:         stats.StdDev,
		Trend:          stats.Trend,
		CurrentStock:   f.CurrentStock,
		MaxStock:       f.MaxStock,
		LeadTimeDays:   f.LeadTimeDays,
		HorizonDays:    horizon,
	})

	risk := AssessRisk(RiskInputs{
		AvgDailyDemand: stats.AvgDailyDemand,
		StdDev:         stats.StdDev,
		CurrentStock:   f.CurrentStock,
		SafetyStock:    reorder.SafetyStock,
		LeadTimeDays:   f.LeadTimeDays,
		ExpiryDate:     f.ExpiryDate,
	}, e.config.ExpiryWindowDays, asOf)

	f.AvgDailyDemand = roundFloat(stats.AvgDailyDemand, 2)
	f.ForecastDemand = roundFloat(reorder.ForecastDemand, 2)
	f.SafetyStock = roundFloat(reorder.SafetyStock, 2)
	f.ReorderPoint = roundFloat(reorder.ReorderPoint, 2)
	f.RecommendedOrderQty = reorder.RecommendedOrderQty

	f.ABCClass = class
	f.StockSpeed = ClassifyVelocity(stats.AvgDailyDemand, f.CurrentStock, e.config)
	f.Status = risk.Status

	f.StockoutProbability = roundFloat(risk.StockoutProbability, 4)
	f.DaysUntilStockout = roundFloat(risk.DaysUntilStockout, 2)
	f.ExpiryRisk = risk.ExpiryRisk
	f.ExpiryRiskReason = risk.ExpiryRiskReason

	f.Trend = stats.Trend
	for m, v := range p.aggregate.MonthlyTotals {
		f.MonthlyTrend[m] = roundFloat(v, 2)
	}
	f.StdDev = roundFloat(stats.StdDev, 2)
	f.CV = roundFloat(stats.CV, 4)
	f.Consistency = stats.Consistency
	f.ActiveDays = p.aggregate.ActiveDays

	return f
}

// Summarize counts statuses, classes and revenue over a set of forecasts
func Summarize(forecasts []domain.SKUForecast) domain.ForecastSummary {
	s := domain.ForecastSummary{TotalProducts: len(forecasts)}
	var revenue float64

	for _, f := range forecasts {
		switch f.Status {
		case domain.StatusCritical:
			s.CriticalCount++
		case domain.StatusLow:
			s.LowCount++
		default:
			s.OKCount++
		}

		if f.ExpiryRisk {
			s.ExpiryRiskCount++
		}

		switch f.ABCClass {
		case domain.ClassA:
			s.ABCDistribution.A++
		case domain.ClassB:
			s.ABCDistribution.B++
		default:
			s.ABCDistribution.C++
		}

		switch f.StockSpeed {
		case domain.SpeedFast:
			s.SpeedDistribution.Fast++
		case domain.SpeedSlow:
			s.SpeedDistribution.Slow++
		default:
			s.SpeedDistribution.Dead++
		}

		revenue += f.TotalRevenue
	}

	s.TotalRevenue = roundFloat(revenue, 2)
	return s
}

// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/clients/yahoo"
	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/marketdata"
	"github.com/aristath/frontier/internal/modules/advisor"
	advisorhandlers "github.com/aristath/frontier/internal/modules/advisor/handlers"
	"github.com/aristath/frontier/internal/modules/analysis"
	analysishandlers "github.com/aristath/frontier/internal/modules/analysis/handlers"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/scheduler"
)

// cleanupSchedule runs the cache cleanup daily at 03:00
const cleanupSchedule = "0 0 3 * * *"

// Wire initializes all dependencies and returns a fully configured container.
// This is the main entry point for dependency injection.
// Order of operations:
// 1. Initialize the cache database
// 2. Initialize the market data pipeline
// 3. Initialize engines and services
// 4. Register background jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := initializeDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	initializeMarketData(container, cfg, log)
	initializeServices(container, cfg, log)

	if err := registerJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}

// initializeDatabase opens and migrates the price cache database
func initializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/cache.db",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := cacheDB.Migrate(); err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	log.Info().Str("path", cacheDB.Path()).Msg("Cache database ready")

	return &Container{CacheDB: cacheDB}, nil
}

// initializeMarketData builds the cached price pipeline over Yahoo Finance
func initializeMarketData(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.YahooClient = yahoo.NewClient(log, cfg.YahooMaxRetries)

	upstream := marketdata.NewYahooProvider(container.YahooClient, cfg.YahooConcurrency, log)
	container.PriceRepo = marketdata.NewRepository(container.CacheDB.Conn())

	opts := marketdata.CachedProviderOptions{}
	if cfg.SyntheticData {
		opts.Fallback = marketdata.NewSyntheticProvider(log)
	}

	ttl := time.Duration(cfg.CacheTTLDays) * 24 * time.Hour
	container.PriceProvider = marketdata.NewCachedProvider(upstream, container.PriceRepo, ttl, log, opts)
}

// initializeServices builds the optimization engines, advisor and analysis service
func initializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.StatsEngine = optimization.NewStatsEngine(log)
	container.Optimizer = optimization.NewMVOptimizer(log)
	container.FrontierGenerator = optimization.NewFrontierGenerator(container.Optimizer, log)
	container.HRPOptimizer = optimization.NewHRPOptimizer()

	container.Advisor = advisor.NewAdvisor(container.PriceProvider, container.StatsEngine, cfg.YahooConcurrency, log)

	container.AnalysisService = analysis.NewService(
		container.PriceProvider,
		container.StatsEngine,
		container.Optimizer,
		container.FrontierGenerator,
		container.HRPOptimizer,
		container.Advisor,
		analysis.Options{
			RiskFreeRate:     cfg.RiskFreeRate,
			InflationRate:    cfg.InflationRate,
			DefaultLookback:  cfg.LookbackYears,
			FrontierPoints:   cfg.FrontierPoints,
			RandomPortfolios: cfg.RandomCount,
			RandomSeed:       time.Now().UnixNano(),
			Tau:              cfg.Tau,
			Delta:            cfg.RiskAversion,
		},
		log,
	)

	container.AnalysisHandlers = analysishandlers.NewHandler(container.AnalysisService, log)
	container.AdvisorHandlers = advisorhandlers.NewHandler(container.Advisor, cfg.LookbackYears, log)
}

// registerJobs creates the scheduler and registers background jobs.
// The scheduler is returned unstarted; main starts it after wiring.
func registerJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Scheduler = scheduler.New(log)

	container.PreloadJob = marketdata.NewPreloadJob(container.PriceProvider, log)
	if cfg.PreloadEnabled {
		if err := container.Scheduler.AddJob(cfg.PreloadSchedule, container.PreloadJob); err != nil {
			return fmt.Errorf("failed to schedule cache preload: %w", err)
		}
	}

	container.CleanupJob = marketdata.NewCleanupJob(container.PriceRepo, log)
	if err := container.Scheduler.AddJob(cleanupSchedule, container.CleanupJob); err != nil {
		return fmt.Errorf("failed to schedule cache cleanup: %w", err)
	}

	return nil
}

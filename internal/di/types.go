/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to handlers and jobs.
 */
package di

import (
	"github.com/aristath/frontier/internal/clients/yahoo"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/marketdata"
	"github.com/aristath/frontier/internal/modules/advisor"
	advisorhandlers "github.com/aristath/frontier/internal/modules/advisor/handlers"
	"github.com/aristath/frontier/internal/modules/analysis"
	analysishandlers "github.com/aristath/frontier/internal/modules/analysis/handlers"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * This is the single source of truth for all service instances.
 * The container is created by Wire() and handed to the server and main.
 *
 * Architecture:
 * - Database: one SQLite cache database for persisted price history
 * - Clients: Yahoo Finance client for quotes and fundamentals
 * - Market data: repository + caching provider with optional synthetic fallback
 * - Engines: statistics, mean-variance, frontier and HRP optimizers
 * - Services: diversification advisor and the analysis orchestration service
 * - Handlers: HTTP handlers wired over the services
 * - Jobs: cron scheduler with cache preload and cleanup jobs
 *
 * All dependencies are injected via constructor injection.
 */
type Container struct {
	// Databases
	CacheDB *database.DB // Persisted price history cache (msgpack payloads)

	// Clients - external API integrations
	YahooClient *yahoo.Client

	// Market data pipeline
	PriceRepo     *marketdata.Repository     // Cache persistence
	PriceProvider *marketdata.CachedProvider // Caching provider over the Yahoo fetcher

	// Optimization engines
	StatsEngine       *optimization.StatsEngine
	Optimizer         *optimization.MVOptimizer
	FrontierGenerator *optimization.FrontierGenerator
	HRPOptimizer      *optimization.HRPOptimizer

	// Services - business logic layer
	Advisor         *advisor.Advisor
	AnalysisService *analysis.Service

	// HTTP handlers
	AnalysisHandlers *analysishandlers.Handler
	AdvisorHandlers  *advisorhandlers.Handler

	// Background jobs
	Scheduler  *scheduler.Scheduler
	PreloadJob *marketdata.PreloadJob
	CleanupJob *marketdata.CleanupJob
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.CacheDB != nil {
		return c.CacheDB.Close()
	}
	return nil
}

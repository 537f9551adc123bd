// Package routes defines the API routing configuration.
// It wires the matching engine, its collaborators and their handlers.
package routes

import (
	"log"

	"fxmatch/internal/clock"
	"fxmatch/internal/config"
	"fxmatch/internal/handlers"
	"fxmatch/internal/metrics"
	"fxmatch/internal/models"
	"fxmatch/internal/repositories"
	"fxmatch/internal/services/engine"
	"fxmatch/internal/services/events"
	"fxmatch/internal/services/fees"
	"fxmatch/internal/services/pool"
	"fxmatch/internal/services/rates"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// SetupRoutes builds the engine from configuration and registers all
// HTTP routes. It returns the engine so main can shut it down.
func SetupRoutes(app *fiber.App) engine.Service {
	cfg := engineConfig()

	collector := metrics.NewCollector()
	bus := events.NewBus(cfg.EventBuffer, collector)

	var snapshots rates.SnapshotStore
	if repositories.RateCache != nil {
		snapshots = repositories.RateCache
	}
	rateTable := rates.NewTable(snapshots)

	var journal engine.Journal
	if repositories.DB != nil {
		journal = repositories.NewMatchRecordRepository(repositories.DB)
	}

	matchingEngine := engine.NewService(
		cfg,
		pool.New(),
		rateTable,
		fees.NewModel(cfg.FeeRate),
		bus,
		journal,
		collector,
		clock.New(),
	)

	// The ledger consumes the global feed; here a log sink stands in for
	// the external ledger service.
	go consumeForLedger(bus.SubscribeAll())

	transferHandler := handlers.NewTransferHandler(matchingEngine)
	ratesHandler := handlers.NewRatesHandler(rateTable, matchingEngine)

	api := app.Group("/api")
	api.Post("/transfers", transferHandler.Submit)
	api.Get("/transfers/:id", transferHandler.Status)
	api.Delete("/transfers/:id", transferHandler.Cancel)
	api.Get("/pool", transferHandler.PoolDepth)
	api.Get("/rates/:from/:to", ratesHandler.Rate)
	api.Get("/quote", ratesHandler.Quote)

	app.Get("/health", handlers.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "fxmatch matching engine",
			"version": "1.0.0",
		})
	})

	return matchingEngine
}

func engineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.FeeRate = decimal.NewFromFloat(config.GetFloatEnv("MATCH_FEE_RATE", 0.01))
	cfg.MatchDelay = config.GetDurationEnv("MATCH_DELAY", cfg.MatchDelay)
	cfg.ChunkInterval = config.GetDurationEnv("MATCH_CHUNK_INTERVAL", cfg.ChunkInterval)
	cfg.ExpiryWindow = config.GetDurationEnv("MATCH_EXPIRY_WINDOW", cfg.ExpiryWindow)
	cfg.MinTransferUSD = decimal.NewFromFloat(config.GetFloatEnv("MATCH_MIN_TRANSFER_USD", 5))
	cfg.EventBuffer = config.GetIntEnv("MATCH_EVENT_BUFFER", cfg.EventBuffer)
	if raw := config.GetEnv("MATCH_DENY_PAIRS", ""); raw != "" {
		cfg.DenyPairs = engine.ParseDenyPairs(raw)
	}
	if raw := config.GetEnv("MATCH_CHUNK_PROFILES", ""); raw != "" {
		cfg.ChunkProfiles = engine.ParseChunkProfiles(raw)
	}
	return cfg
}

func consumeForLedger(sub *events.Subscription) {
	for ev := range sub.C {
		switch e := ev.(type) {
		case models.MatchEvent:
			log.Printf("ledger: match %s amount=%s fee=%s recipient_gets=%s partial=%t",
				e.Record.RequestID, e.Record.MatchedAmount, e.Record.Fee, e.Record.RecipientGets, e.Record.Partial)
		case models.NoMatchEvent:
			log.Printf("ledger: no match %s reason=%s", e.RequestID, e.Reason)
		}
	}
}

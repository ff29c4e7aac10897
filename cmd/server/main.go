package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianadvisory/portfolio-engine/internal/api"
	"github.com/meridianadvisory/portfolio-engine/internal/config"
	"github.com/meridianadvisory/portfolio-engine/internal/database"
	"github.com/meridianadvisory/portfolio-engine/internal/fx"
	"github.com/meridianadvisory/portfolio-engine/internal/logging"
	"github.com/meridianadvisory/portfolio-engine/internal/quote"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
	"github.com/meridianadvisory/portfolio-engine/internal/valuation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Log.Level, false)

	// Open database connection and apply migrations
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	log.Info().Str("path", cfg.Database.Path).Msg("connected to database")

	// Create repositories
	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	rateRepo := repository.NewRateRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	transactor := repository.NewTransactor(db)

	// Market-data clients and the rate cache (warm-started from storage)
	quoteClient := quote.NewClient()
	rateCache := fx.NewCache(
		fx.NewYahooProvider(),
		log,
		fx.WithTTL(cfg.Rates.TTL),
		fx.WithStore(rateRepo),
	)
	valuator := valuation.NewValuator(rateCache, log)

	// Create services
	systemService := service.NewSystemService(db, rateRepo)
	settingsService, err := service.NewSettingsService(settingRepo, cfg.FernetKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize settings service")
	}
	transactionService := service.NewTransactionService(
		transactionRepo,
		holdingRepo,
		portfolioRepo,
		transactor,
		log,
	)
	holdingService := service.NewHoldingService(
		holdingRepo,
		transactionRepo,
		portfolioRepo,
		quoteRepo,
		transactor,
		quoteClient,
		valuator,
		log,
	)
	portfolioService := service.NewPortfolioService(
		portfolioRepo,
		holdingService,
		cfg.Valuation.Timeout,
		log,
	)

	// Background refresh of quotes and rates
	refreshService := service.NewRefreshService(
		holdingRepo,
		quoteRepo,
		quoteClient,
		rateCache,
		time.Minute,
		log,
	)
	if err := refreshService.Start(cfg.Rates.RefreshSchedule); err != nil {
		log.Fatal().Err(err).Msg("failed to start refresh scheduler")
	}
	defer refreshService.Stop()

	// Create router
	router := api.NewRouter(systemService, portfolioService, holdingService, transactionService, settingsService, cfg, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

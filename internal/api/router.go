package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/meridianadvisory/portfolio-engine/internal/api/handlers"
	custommiddleware "github.com/meridianadvisory/portfolio-engine/internal/api/middleware"
	"github.com/meridianadvisory/portfolio-engine/internal/config"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	portfolioService *service.PortfolioService,
	holdingService *service.HoldingService,
	transactionService *service.TransactionService,
	settingsService *service.SettingsService,
	cfg *config.Config,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			settingsHandler := handlers.NewSettingsHandler(settingsService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Get("/rates/history", systemHandler.RateHistory)
			r.Get("/settings/provider-token", settingsHandler.ProviderToken)
			r.Put("/settings/provider-token", settingsHandler.SetProviderToken)
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
			holdingHandler := handlers.NewHoldingHandler(holdingService)

			r.Get("/", portfolioHandler.Portfolios)
			r.Post("/", portfolioHandler.CreatePortfolio)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", portfolioHandler.GetPortfolio)
				r.Get("/summary", portfolioHandler.PortfolioSummary)
				r.Get("/holdings", holdingHandler.HoldingsPerPortfolio)
				r.Post("/holdings/rebuild", holdingHandler.RebuildHoldings)
			})
		})

		r.Route("/transaction", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(transactionService)

			r.Post("/", transactionHandler.CreateTransaction)

			r.Route("/portfolio/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", transactionHandler.TransactionsPerPortfolio)
			})

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", transactionHandler.GetTransaction)
				r.Delete("/", transactionHandler.DeleteTransaction)
			})
		})
	})

	return r
}

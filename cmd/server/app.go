package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/retail-invoices/httpx"
	"github.com/diewo77/retail-invoices/internal/config"
	"github.com/diewo77/retail-invoices/internal/handlers"
	"github.com/diewo77/retail-invoices/internal/receipt"
	"github.com/diewo77/retail-invoices/internal/services"
	"gorm.io/gorm"
)

const gotenbergPingTimeout = 5 * time.Second

// App is the main application handler that sets up all routes.
type App struct {
	mux    *http.ServeMux
	db     *gorm.DB
	logger *slog.Logger

	invoices  *handlers.InvoiceHandler
	products  *handlers.ProductHandler
	dashboard *handlers.DashboardHandler
}

// NewApp wires the receipt pipeline, the invoice services and the handlers.
// PDF conversion is disabled when no Gotenberg URL is configured.
func NewApp(db *gorm.DB, cfg *config.Config, logger *slog.Logger) (*App, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	renderer, err := receipt.NewRenderer(cfg.Receipt.CurrencySymbol, loc)
	if err != nil {
		return nil, err
	}
	var converter receipt.Converter
	if cfg.Receipt.GotenbergURL != "" {
		client := receipt.NewGotenbergClient(cfg.Receipt.GotenbergURL, cfg.Receipt.Timeout)
		ctx, cancel := context.WithTimeout(context.Background(), gotenbergPingTimeout)
		if err := client.Ping(ctx); err != nil {
			logger.Warn("gotenberg unreachable, receipts will fail until it is up",
				slog.String("url", cfg.Receipt.GotenbergURL), slog.Any("error", err))
		}
		cancel()
		converter = client
	} else {
		logger.Warn("GOTENBERG_URL not set, receipts will not be generated")
	}
	generator := receipt.NewGenerator(renderer, converter, cfg.Receipt.Dir, logger)

	repo := services.NewInvoiceRepository(db, generator, logger)
	queries := services.NewInvoiceQueries(db, loc, logger)

	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		logger:    logger,
		invoices:  handlers.NewInvoiceHandler(repo, queries, logger),
		products:  handlers.NewProductHandler(queries, logger),
		dashboard: handlers.NewDashboardHandler(queries, logger),
	}
	app.setupRoutes()
	return app, nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withRecover(a.logger, a.mux).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.HandleFunc("GET /dashboard", a.dashboard.Show)
	a.mux.HandleFunc("GET /products", a.products.List)

	ih := a.invoices
	a.mux.HandleFunc("GET /invoices", ih.List)
	a.mux.HandleFunc("POST /invoices", ih.Create)
	a.mux.HandleFunc("GET /invoices/{id}", ih.View)
	a.mux.HandleFunc("PUT /invoices/{id}", ih.Update)
	a.mux.HandleFunc("POST /invoices/{id}", ih.Update)
	a.mux.HandleFunc("GET /invoices/{id}/pdf", ih.PDF)
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		a.logger.Warn("health check failed", slog.Any("error", err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withRecover turns a handler panic into a 500 JSON error.
func withRecover(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic serving request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("panic", fmt.Sprint(rec)))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

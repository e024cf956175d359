package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/retail-invoices/httpx"
	"github.com/diewo77/retail-invoices/internal/services"
)

// DashboardHandler serves the home screen overview.
type DashboardHandler struct {
	queries *services.InvoiceQueries
	logger  *slog.Logger
}

func NewDashboardHandler(queries *services.InvoiceQueries, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{queries: queries, logger: logger}
}

// Show: GET /dashboard returns the invoice count, the three newest invoices
// and the running total.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	summary, err := h.queries.Summary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_dashboard", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

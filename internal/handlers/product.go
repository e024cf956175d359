package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/retail-invoices/httpx"
	"github.com/diewo77/retail-invoices/internal/services"
)

type ProductHandler struct {
	queries *services.InvoiceQueries
	logger  *slog.Logger
}

func NewProductHandler(queries *services.InvoiceQueries, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{queries: queries, logger: logger}
}

// List: GET /products returns the catalog used by the invoice form.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.queries.Products(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": len(products)})
}

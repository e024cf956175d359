package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/retail-invoices/httpx"
	"github.com/diewo77/retail-invoices/internal/models"
	"github.com/diewo77/retail-invoices/internal/receipt"
	"github.com/diewo77/retail-invoices/internal/services"
	"github.com/diewo77/retail-invoices/validation"
)

// InvoiceHandler serves the invoice screens as JSON endpoints.
type InvoiceHandler struct {
	repo    *services.InvoiceRepository
	queries *services.InvoiceQueries
	logger  *slog.Logger
}

func NewInvoiceHandler(repo *services.InvoiceRepository, queries *services.InvoiceQueries, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{repo: repo, queries: queries, logger: logger}
}

// lineRequest is one requested line. Either ProductID picks a catalog
// product, or the product fields are given explicitly.
type lineRequest struct {
	ProductID   *uint           `json:"product_id,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	MRP         *float64        `json:"mrp,omitempty"`
	PTR         *float64        `json:"ptr,omitempty"`
	Discount    json.RawMessage `json:"discount"`
}

type invoiceRequest struct {
	SupplierName string        `json:"supplier_name"`
	Items        []lineRequest `json:"items"`
}

// List: GET /invoices, optionally filtered with ?year=YYYY&month=M
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	yearStr, monthStr := q.Get("year"), q.Get("month")

	var (
		invs []models.Invoice
		err  error
	)
	if yearStr == "" && monthStr == "" {
		invs, err = h.queries.List(r.Context())
	} else {
		v := make(validation.Violations)
		year, yerr := strconv.Atoi(yearStr)
		if yerr != nil || year < 1 {
			v["year"] = "invalid"
		}
		month, merr := strconv.Atoi(monthStr)
		if merr != nil || month < 1 || month > 12 {
			v["month"] = "invalid"
		}
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		invs, err = h.queries.ListForMonth(r.Context(), year, time.Month(month))
	}
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": len(invs)})
}

// View: GET /invoices/{id}
func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.queries.GetWithItems(r.Context(), id)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, nil, http.StatusCreated)
}

// Update: PUT|POST /invoices/{id}. The stored items are replaced by the
// requested ones.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.save(w, r, &id, http.StatusOK)
}

func (h *InvoiceHandler) save(w http.ResponseWriter, r *http.Request, id *uint, status int) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in, v, err := h.toInput(r.Context(), req)
	if err != nil {
		h.logger.Error("resolve invoice products", slog.Any("error", err))
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_invoice", nil)
		return
	}
	in.InvoiceID = id
	if !v.Empty() {
		// report every problem at once, parse errors first
		var ve *services.ValidationError
		if errors.As(in.Validate(), &ve) {
			v.Merge(ve.Violations)
		}
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	saved, err := h.repo.Save(r.Context(), in)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	inv, err := h.queries.GetWithItems(r.Context(), saved)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	httpx.JSON(w, status, inv)
}

// toInput resolves catalog products and parses discounts. Parse failures are
// returned as violations; err is only set when the catalog cannot be read.
func (h *InvoiceHandler) toInput(ctx context.Context, req invoiceRequest) (services.SaveInvoiceInput, validation.Violations, error) {
	v := make(validation.Violations)
	in := services.SaveInvoiceInput{Supplier: req.SupplierName}
	if req.Items != nil {
		in.Items = make([]services.LineInput, 0, len(req.Items))
	}
	for i, it := range req.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		var line services.LineInput

		if it.ProductID != nil {
			p, err := h.queries.Product(ctx, *it.ProductID)
			if err != nil {
				return in, nil, err
			}
			if p == nil {
				v[prefix+".product_id"] = "unknown_product"
			} else {
				line.ProductName, line.SKU, line.MRP, line.PTR = p.Name, p.SKU, p.MRP, p.PTR
			}
		} else {
			line.ProductName = strings.TrimSpace(it.ProductName)
			line.SKU = strings.TrimSpace(it.SKU)
			if it.MRP == nil {
				v[prefix+".mrp"] = "required"
			} else {
				line.MRP = *it.MRP
			}
			if it.PTR != nil {
				line.PTR = *it.PTR
			}
		}

		field := prefix + ".discount"
		if d, ok := validation.Number(field, rawNumber(it.Discount), v); ok {
			validation.RangeFloat(field, d, 0, 100, v)
			line.Discount = d
		}
		in.Items = append(in.Items, line)
	}
	return in, v, nil
}

// rawNumber returns the text of a JSON number or string value. Other JSON
// kinds come back unchanged and fail number parsing.
func rawNumber(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	}
	return s
}

// PDF: GET /invoices/{id}/pdf streams the stored receipt as an attachment.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.queries.GetWithItems(r.Context(), id)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	path := inv.ReceiptPath()
	if path == "" {
		httpx.JSONError(w, http.StatusNotFound, "receipt_unavailable", map[string]string{"reason": "no receipt was generated for this invoice"})
		return
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		h.logger.Warn("receipt file missing", slog.Uint64("invoice_id", uint64(id)), slog.String("path", path), slog.Any("error", err))
		httpx.JSONError(w, http.StatusNotFound, "receipt_unavailable", map[string]string{"reason": "receipt file not found"})
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		httpx.JSONError(w, http.StatusNotFound, "receipt_unavailable", map[string]string{"reason": "receipt file not found"})
		return
	}

	name := receipt.FileName(id)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, st.ModTime(), f)
}

func (h *InvoiceHandler) writeSaveError(w http.ResponseWriter, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_invoice", nil)
	}
}

func (h *InvoiceHandler) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	h.logger.Error("load invoice", slog.Any("error", err))
	httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 0)
	if err != nil || n == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(n), true
}

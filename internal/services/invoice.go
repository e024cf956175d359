package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/retail-invoices/internal/models"
	"github.com/diewo77/retail-invoices/internal/receipt"
	"github.com/diewo77/retail-invoices/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReceiptGenerator produces the PDF for a saved invoice and returns its path,
// or "" when no receipt could be produced.
type ReceiptGenerator interface {
	Generate(ctx context.Context, r receipt.Receipt) string
}

// LineInput is one line of an invoice being saved. Product fields are copied
// onto the stored item as they are at the time of sale.
type LineInput struct {
	ProductName string  `json:"product_name" validate:"required"`
	SKU         string  `json:"sku"`
	MRP         float64 `json:"mrp" validate:"gte=0"`
	PTR         float64 `json:"ptr" validate:"gte=0"`
	Discount    float64 `json:"discount" validate:"gte=0,lte=100"`
}

// SaveInvoiceInput is the input of InvoiceRepository.Save. A nil InvoiceID
// creates a new invoice; otherwise that invoice is rewritten in place.
type SaveInvoiceInput struct {
	Supplier  string      `json:"supplier_name" validate:"required"`
	Items     []LineInput `json:"items" validate:"required,min=1,dive"`
	InvoiceID *uint       `json:"-"`
}

// Validate trims the supplier name and checks every field. It returns a
// *ValidationError listing all violations.
func (in *SaveInvoiceInput) Validate() error {
	in.Supplier = strings.TrimSpace(in.Supplier)
	v := validation.Struct(in)
	if !v.Empty() {
		return &ValidationError{Violations: v}
	}
	return nil
}

// InvoiceRepository persists invoices together with their items and receipt path.
type InvoiceRepository struct {
	db       *gorm.DB
	receipts ReceiptGenerator
	logger   *slog.Logger
	now      func() time.Time

	// serializes saves end to end, including receipt generation
	mu sync.Mutex
}

func NewInvoiceRepository(db *gorm.DB, receipts ReceiptGenerator, logger *slog.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, receipts: receipts, logger: logger, now: time.Now}
}

// Save validates in and writes the invoice header and its items in one
// transaction, then generates the receipt and records its path. It returns
// the invoice id.
//
// Editing replaces the full item set. Header and items are committed
// together or not at all. The receipt is produced after that commit, so a
// slow conversion never holds the store; a failed receipt leaves the
// invoice stored with an empty pdf_path. Once validation passes, cancelling
// ctx only stops the receipt conversion.
func (r *InvoiceRepository) Save(ctx context.Context, in SaveInvoiceInput) (uint, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	issuedAt := r.now().UTC()
	items := buildItems(in.Items)
	total := models.SumFinalPrices(items)
	date := models.FormatDate(issuedAt)
	storeCtx := context.WithoutCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	var id uint
	err := r.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		if in.InvoiceID != nil {
			id = *in.InvoiceID
			var n int64
			if err := tx.Model(&models.Invoice{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return &StorageError{Op: "find invoice", Err: err}
			}
			if n == 0 {
				return ErrNotFound
			}
			err := tx.Model(&models.Invoice{}).Where("id = ?", id).Updates(map[string]any{
				"date":          date,
				"total_amount":  total,
				"supplier_name": in.Supplier,
				"pdf_path":      "",
			}).Error
			if err != nil {
				return &StorageError{Op: "update invoice", Err: err}
			}
			if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
				return &StorageError{Op: "delete invoice items", Err: err}
			}
		} else {
			empty := ""
			inv := models.Invoice{Date: date, TotalAmount: total, SupplierName: in.Supplier, PDFPath: &empty}
			if err := tx.Omit(clause.Associations).Create(&inv).Error; err != nil {
				return &StorageError{Op: "insert invoice", Err: err}
			}
			id = inv.ID
		}

		for i := range items {
			items[i].InvoiceID = id
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return &StorageError{Op: "insert invoice items", Err: err}
		}
		return nil
	})
	if err != nil {
		var se *StorageError
		if errors.As(err, &se) {
			r.logger.Error("save invoice rolled back", slog.String("op", se.Op), slog.Any("error", se.Err))
		} else if !errors.Is(err, ErrNotFound) {
			// begin and commit failures surface here unwrapped
			err = &StorageError{Op: "save invoice", Err: err}
			r.logger.Error("save invoice rolled back", slog.Any("error", err))
		}
		return 0, err
	}

	path := r.receipts.Generate(ctx, receipt.Receipt{
		InvoiceID: id,
		Date:      issuedAt,
		Supplier:  in.Supplier,
		Lines:     receiptLines(items),
		Total:     total,
	})
	if path != "" {
		err := r.db.WithContext(storeCtx).Model(&models.Invoice{}).Where("id = ?", id).Update("pdf_path", path).Error
		if err != nil {
			r.logger.Warn("pdf path not recorded",
				slog.Uint64("invoice_id", uint64(id)), slog.String("path", path), slog.Any("error", err))
		}
	}

	r.logger.Info("invoice saved",
		slog.Uint64("invoice_id", uint64(id)),
		slog.Int("items", len(items)),
		slog.Float64("total", total),
		slog.Bool("edited", in.InvoiceID != nil),
		slog.Bool("receipt", path != ""))
	return id, nil
}

func buildItems(lines []LineInput) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.InvoiceItem{
			ProductName: l.ProductName,
			SKU:         l.SKU,
			MRP:         l.MRP,
			PTR:         l.PTR,
			Discount:    l.Discount,
			FinalPrice:  models.FinalPrice(l.MRP, l.Discount),
		})
	}
	return items
}

func receiptLines(items []models.InvoiceItem) []receipt.Line {
	lines := make([]receipt.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, receipt.Line{
			ProductName: it.ProductName,
			SKU:         it.SKU,
			MRP:         it.MRP,
			PTR:         it.PTR,
			Discount:    it.Discount,
			FinalPrice:  it.FinalPrice,
		})
	}
	return lines
}

// RunningTotal sums invoice totals in decimal.
func RunningTotal(invoices []models.Invoice) float64 {
	sum := decimal.Zero
	for _, inv := range invoices {
		sum = sum.Add(decimal.NewFromFloat(inv.TotalAmount))
	}
	return sum.Round(2).InexactFloat64()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/retail-invoices/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DashboardSize is the number of invoices shown as "recent".
const DashboardSize = 3

// InvoiceQueries holds the read-only invoice and catalog queries.
type InvoiceQueries struct {
	db     *gorm.DB
	loc    *time.Location
	logger *slog.Logger
}

// NewInvoiceQueries builds the query service. loc is the calendar used by
// ListForMonth; nil means UTC.
func NewInvoiceQueries(db *gorm.DB, loc *time.Location, logger *slog.Logger) *InvoiceQueries {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceQueries{db: db, loc: loc, logger: logger}
}

var newestFirst = []clause.OrderByColumn{
	{Column: clause.Column{Name: "date"}, Desc: true},
	{Column: clause.Column{Name: "id"}, Desc: true},
}

func orderNewestFirst(db *gorm.DB) *gorm.DB {
	for _, o := range newestFirst {
		db = db.Order(o)
	}
	return db
}

// List returns every invoice header, newest first.
func (q *InvoiceQueries) List(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := orderNewestFirst(q.db.WithContext(ctx)).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// ListForMonth returns the invoices dated in the given calendar month, newest
// first. Dates are compared in the service's location.
func (q *InvoiceQueries) ListForMonth(ctx context.Context, year int, month time.Month) ([]models.Invoice, error) {
	all, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Invoice, 0, len(all))
	for _, inv := range all {
		t, err := inv.IssuedAt()
		if err != nil {
			q.logger.Warn("skipping invoice with unreadable date",
				slog.Uint64("invoice_id", uint64(inv.ID)), slog.String("date", inv.Date))
			continue
		}
		t = t.In(q.loc)
		if t.Year() == year && t.Month() == month {
			out = append(out, inv)
		}
	}
	return out, nil
}

// GetWithItems loads an invoice and its items in insertion order.
func (q *InvoiceQueries) GetWithItems(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := q.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return &inv, nil
}

// Count returns the number of stored invoices.
func (q *InvoiceQueries) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.WithContext(ctx).Model(&models.Invoice{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

// Recent returns the newest invoices. A non-positive limit means DashboardSize.
func (q *InvoiceQueries) Recent(ctx context.Context, limit int) ([]models.Invoice, error) {
	if limit <= 0 {
		limit = DashboardSize
	}
	var invoices []models.Invoice
	if err := orderNewestFirst(q.db.WithContext(ctx)).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("recent invoices: %w", err)
	}
	return invoices, nil
}

// Products returns the catalog in seed order.
func (q *InvoiceQueries) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := q.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Product returns one catalog entry, or nil when it does not exist.
func (q *InvoiceQueries) Product(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := q.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}

// DashboardSummary is the home screen overview.
type DashboardSummary struct {
	InvoiceCount int64            `json:"invoice_count"`
	Recent       []models.Invoice `json:"recent"`
	RunningTotal float64          `json:"running_total"`
}

// Summary returns the invoice count, the most recent invoices and the sum of
// all invoice totals.
func (q *InvoiceQueries) Summary(ctx context.Context) (DashboardSummary, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return DashboardSummary{}, err
	}
	recent, err := q.Recent(ctx, DashboardSize)
	if err != nil {
		return DashboardSummary{}, err
	}
	var totals []models.Invoice
	if err := q.db.WithContext(ctx).Select("total_amount").Find(&totals).Error; err != nil {
		return DashboardSummary{}, fmt.Errorf("sum invoices: %w", err)
	}
	return DashboardSummary{InvoiceCount: count, Recent: recent, RunningTotal: RunningTotal(totals)}, nil
}

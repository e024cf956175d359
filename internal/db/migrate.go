package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diewo77/retail-invoices/internal/models"
	"gorm.io/gorm"
)

// invoiceAdditions are columns introduced after the first release. Stores
// created earlier lack them, so they are added in place when missing.
var invoiceAdditions = []string{"supplier_name", "pdf_path"}

// EnsureSchema creates the products, invoices and invoice_items tables when
// absent and adds missing invoice columns. It only ever adds; it is safe to
// run on every start against fresh and existing stores.
func EnsureSchema(ctx context.Context, conn *gorm.DB, logger *slog.Logger) error {
	m := conn.WithContext(ctx).Migrator()

	// invoices must exist before invoice_items references it.
	for _, model := range []any{&models.Product{}, &models.Invoice{}, &models.InvoiceItem{}} {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	columns, err := m.ColumnTypes(&models.Invoice{})
	if err != nil {
		return fmt.Errorf("inspect invoices columns: %w", err)
	}
	existing := make(map[string]bool, len(columns))
	for _, c := range columns {
		existing[c.Name()] = true
	}

	for _, name := range invoiceAdditions {
		if existing[name] {
			continue
		}
		if err := m.AddColumn(&models.Invoice{}, name); err != nil {
			return fmt.Errorf("add invoices.%s: %w", name, err)
		}
		logger.Info("added column", slog.String("table", "invoices"), slog.String("column", name))
	}
	return nil
}

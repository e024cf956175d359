package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diewo77/retail-invoices/internal/models"
	"gorm.io/gorm"
)

// DefaultCatalog is inserted, in this order, into an empty products table.
func DefaultCatalog() []models.Product {
	return []models.Product{
		{Name: "Eno", SKU: "ENO001", MRP: 60, PTR: 52.17},
		{Name: "Sensodyne Toothpaste", SKU: "SENSO001", MRP: 140, PTR: 121.74},
		{Name: "Tooth Brush", SKU: "TB001", MRP: 65, PTR: 48.15},
		{Name: "Iodex", SKU: "IOD001", MRP: 180, PTR: 156.52},
	}
}

// SeedDefaultCatalog inserts DefaultCatalog when the products table has no
// rows at call time. It reports whether anything was inserted.
// Run it after EnsureSchema.
func SeedDefaultCatalog(ctx context.Context, conn *gorm.DB, logger *slog.Logger) (bool, error) {
	seeded := false
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		if count != 0 {
			return nil
		}
		products := DefaultCatalog()
		for i := range products {
			if err := tx.Create(&products[i]).Error; err != nil {
				return fmt.Errorf("insert product %s: %w", products[i].SKU, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		logger.Info("default products inserted", slog.Int("count", len(DefaultCatalog())))
	}
	return seeded, nil
}

// Seed runs every seeder. Should be called after EnsureSchema.
func Seed(ctx context.Context, conn *gorm.DB, logger *slog.Logger) error {
	_, err := SeedDefaultCatalog(ctx, conn, logger)
	return err
}

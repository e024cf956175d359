package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 form stored in invoices.date. Values are UTC,
// so lexical order matches chronological order.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Invoice represents a saved invoice header.
type Invoice struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Date        string  `gorm:"column:date" json:"date"`
	TotalAmount float64 `gorm:"column:total_amount" json:"total_amount"`

	// Added by migration on stores created before these columns existed.
	SupplierName string  `gorm:"column:supplier_name;type:text" json:"supplier_name"`
	PDFPath      *string `gorm:"column:pdf_path;type:text" json:"pdf_path,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// FormatDate renders t in the stored invoice date layout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a stored invoice date. Besides the canonical layout it
// accepts date-only and space-separated timestamps, which are read as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid invoice date %q", s)
}

// IssuedAt returns the parsed invoice date.
func (i *Invoice) IssuedAt() (time.Time, error) {
	return ParseDate(i.Date)
}

// ReceiptPath returns the stored PDF path or "" when no receipt was generated.
func (i *Invoice) ReceiptPath() string {
	if i.PDFPath == nil {
		return ""
	}
	return *i.PDFPath
}

// ItemsTotal sums the final prices of the loaded items.
func (i *Invoice) ItemsTotal() float64 {
	return SumFinalPrices(i.Items)
}

// InvoiceItem is a line on an invoice. Product fields are snapshots taken at
// the time of sale, not references to the catalog.
type InvoiceItem struct {
	ID        uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID uint     `gorm:"not null;index" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"-"`

	ProductName string  `gorm:"column:product_name" json:"product_name"`
	SKU         string  `gorm:"column:sku" json:"sku"`
	MRP         float64 `gorm:"column:mrp" json:"mrp"`
	PTR         float64 `gorm:"column:ptr" json:"ptr"`
	Discount    float64 `gorm:"column:discount" json:"discount"`
	FinalPrice  float64 `gorm:"column:final_price" json:"final_price"`
}

// FinalPrice returns mrp * (1 - discount/100) rounded half away from zero to
// two decimal places.
func FinalPrice(mrp, discount float64) float64 {
	hundred := decimal.NewFromInt(100)
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discount).Div(hundred))
	return decimal.NewFromFloat(mrp).Mul(factor).Round(2).InexactFloat64()
}

// SumFinalPrices adds item final prices without accumulating float error.
func SumFinalPrices(items []InvoiceItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.FinalPrice))
	}
	return total.Round(2).InexactFloat64()
}

package models

// Product is a catalog entry. Products are only created by the catalog seeder.
type Product struct {
	ID   uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string  `json:"name"`
	SKU  string  `gorm:"column:sku" json:"sku"`
	MRP  float64 `gorm:"column:mrp" json:"mrp"`
	PTR  float64 `gorm:"column:ptr" json:"ptr"`
}


// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category is one of the fixed storefront departments
type Category string

const (
	CategoryKitchen    Category = "kitchen"
	CategoryBathroom   Category = "bathroom"
	CategoryBedroom    Category = "bedroom"
	CategoryLivingRoom Category = "living-room"
	CategoryCleaning   Category = "cleaning"
	CategoryStorage    Category = "storage"
)

// Categories lists the accepted categories in display order
var Categories = []Category{
	CategoryKitchen,
	CategoryBathroom,
	CategoryBedroom,
	CategoryLivingRoom,
	CategoryCleaning,
	CategoryStorage,
}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents the product entity.
// Stock is only written through the inventory ledger or an admin edit.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Image       string          `gorm:"size:500" json:"image"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_products_price,price >= 0" json:"price"`
	Stock       int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	Category    Category        `gorm:"not null;size:32;index" json:"category"`
	IsFeatured  bool            `gorm:"default:false;index" json:"is_featured"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string { return "products" }

// InStock reports whether quantity units can currently be supplied
func (p *Product) InStock(quantity int) bool {
	return quantity <= p.Stock
}

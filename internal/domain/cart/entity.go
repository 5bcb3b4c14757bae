// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/domain/product"
)

// Cart is the single shopping cart owned by a user.
// TotalAmount is a cache; it is recomputed from live prices before use.
type Cart struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem is one line of a cart; (cart_id, product_id) is unique
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product;index" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Product *product.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides the table name
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Subtotal sums price x quantity over lines whose product still resolves
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for i := range c.Items {
		total = total.Add(c.Items[i].LineTotal())
	}
	return total.Round(2)
}

// LineTotal returns price x quantity at the product's current price
func (ci *CartItem) LineTotal() decimal.Decimal {
	if ci.Product == nil {
		return decimal.Zero
	}
	return ci.Product.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// internal/domain/cart/view.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/domain/product"
)

// ItemView is a cart line with its resolved product
type ItemView struct {
	ID        uint             `json:"id"`
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	LineTotal decimal.Decimal  `json:"line_total"`
	Available bool             `json:"available"`
	Product   *product.Product `json:"product,omitempty"`
}

// View is the cart as returned to clients
type View struct {
	ID             uint            `json:"id"`
	UserID         uint            `json:"user_id"`
	Items          []ItemView      `json:"items"`
	ItemCount      int             `json:"item_count"`
	TotalQuantity  int             `json:"total_quantity"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	EstimatedTax   decimal.Decimal `json:"estimated_tax"` // display only, orders are never taxed
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewView builds the client view of c with a display tax rate
func NewView(c *Cart, userID uint, taxRate decimal.Decimal) *View {
	view := &View{
		UserID:         userID,
		Items:          []ItemView{},
		TotalAmount:    decimal.Zero,
		EstimatedTax:   decimal.Zero,
		EstimatedTotal: decimal.Zero,
	}
	if c == nil {
		return view
	}

	view.ID = c.ID
	view.UpdatedAt = c.UpdatedAt

	for i := range c.Items {
		item := &c.Items[i]
		iv := ItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: decimal.Zero,
			LineTotal: item.LineTotal().Round(2),
			Product:   item.Product,
		}
		if item.Product != nil {
			iv.UnitPrice = item.Product.Price
			iv.Available = item.Product.InStock(item.Quantity)
		}
		view.Items = append(view.Items, iv)
		view.TotalQuantity += item.Quantity
	}

	view.ItemCount = len(view.Items)
	view.TotalAmount = c.Subtotal()
	view.EstimatedTax = view.TotalAmount.Mul(taxRate).Round(2)
	view.EstimatedTotal = view.TotalAmount.Add(view.EstimatedTax)
	return view
}

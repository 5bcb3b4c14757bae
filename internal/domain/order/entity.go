// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// validTransitions is the linear lifecycle; cancellation is open to every
// state that has not reached delivered.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

// IsValid reports whether s is a known status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether from -> to is allowed
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is the frozen record of a completed checkout.
// Only Status and its timestamps change after creation.
type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderNumber string          `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus     `gorm:"not null;size:20;default:'pending';index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// Timestamps
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	User          *user.User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a snapshot of one purchased line
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"not null;size:255" json:"product_name"`
	Quantity    int             `gorm:"not null;check:chk_order_items_quantity,quantity >= 1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"size:20" json:"from_status,omitempty"`
	Status     OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment    string      `gorm:"type:text" json:"comment"`
	CreatedBy  uint        `gorm:"index" json:"created_by"` // User ID who made the change
	CreatedAt  time.Time   `json:"created_at"`
}

// Address represents the shipping address (embedded in Order)
type Address struct {
	Street  string `gorm:"size:255" json:"street"`
	City    string `gorm:"size:100" json:"city"`
	State   string `gorm:"size:100" json:"state"`
	ZipCode string `gorm:"size:20" json:"zipCode"`
	Country string `gorm:"size:100" json:"country"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Validate checks that the address can be shipped to
func (a Address) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.ZipCode) == "" {
		missing = append(missing, "zipCode")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return apperror.Validation("shipping address is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Line is the input for one order item
type Line struct {
	ProductID uint
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// NewOrder builds a pending order whose total is frozen from the given lines
func NewOrder(userID uint, address Address, lines []Line) *Order {
	o := &Order{
		OrderNumber:     GenerateOrderNumber(time.Now()),
		UserID:          userID,
		Status:          OrderStatusPending,
		ShippingAddress: address,
		Items:           make([]OrderItem, 0, len(lines)),
	}

	total := decimal.Zero
	for _, l := range lines {
		lineTotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		o.Items = append(o.Items, OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}
	o.TotalAmount = total.Round(2)

	o.AddStatusHistory("", OrderStatusPending, "Order placed", userID)
	return o
}

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber(now time.Time) string {
	// Format: ORD-YYYYMMDD-XXXXXXXX
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// ItemsTotal recomputes the sum of quantity x unit price
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

// BeforeCreate rejects orders whose total disagrees with their items
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if len(o.Items) == 0 {
		return apperror.Validation("order has no items")
	}
	if !o.TotalAmount.Equal(o.ItemsTotal()) {
		return apperror.Validation("order total %s does not match items total %s", o.TotalAmount, o.ItemsTotal())
	}
	if o.OrderNumber == "" {
		o.OrderNumber = GenerateOrderNumber(time.Now())
	}
	return nil
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return CanTransition(o.Status, OrderStatusCancelled)
}

// AddStatusHistory adds a new status change to history
func (o *Order) AddStatusHistory(from, to OrderStatus, comment string, createdBy uint) {
	o.StatusHistory = append(o.StatusHistory, OrderStatusHistory{
		OrderID:    o.ID,
		FromStatus: from,
		Status:     to,
		Comment:    comment,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	})
}

// statusTimestampColumn names the column stamped when entering status
func statusTimestampColumn(status OrderStatus) string {
	switch status {
	case OrderStatusProcessing:
		return "processed_at"
	case OrderStatusShipped:
		return "shipped_at"
	case OrderStatusDelivered:
		return "delivered_at"
	case OrderStatusCancelled:
		return "cancelled_at"
	}
	return ""
}

// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the type of inventory movement
type MovementType string

const (
	MovementTypeReservation MovementType = "reservation" // Order placement
	MovementTypeRelease     MovementType = "release"     // Order cancellation
)

// Reference identifies what caused a movement
type Reference struct {
	Type    string // "order"
	ID      uint
	ActorID uint
}

// OrderReference builds the reference used by checkout and cancellation
func OrderReference(orderID, actorID uint) Reference {
	return Reference{Type: "order", ID: orderID, ActorID: actorID}
}

// InventoryMovement is an append-only record of a ledger mutation
type InventoryMovement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	ProductID     uint         `gorm:"not null;index" json:"product_id"`
	MovementType  MovementType `gorm:"not null;size:20" json:"movement_type"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	StockAfter    int          `gorm:"not null" json:"stock_after"`
	ReferenceType string       `gorm:"size:50" json:"reference_type"`
	ReferenceID   uint         `gorm:"index" json:"reference_id"`
	CreatedBy     uint         `gorm:"index" json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
}

// TableName overrides
func (InventoryMovement) TableName() string { return "inventory_movements" }

// Delta returns the signed stock change of the movement
func (m *InventoryMovement) Delta() int {
	if m.MovementType == MovementTypeRelease {
		return m.Quantity
	}
	return -m.Quantity
}

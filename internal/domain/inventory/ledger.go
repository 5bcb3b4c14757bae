// internal/domain/inventory/ledger.go
package inventory

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

// Ledger owns authoritative stock counts.
// Every decrement is a single conditional UPDATE so concurrent callers can
// never drive stock below zero.
type Ledger struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewLedger creates a new inventory ledger
func NewLedger(db *gorm.DB, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		db:  db,
		log: logger.ForService(log, "inventory"),
	}
}

// WithTx returns a ledger bound to the caller's transaction
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, log: l.log}
}

// Reserve decrements stock by quantity if and only if enough is left.
// The check and the write are one statement evaluated against live stock.
func (l *Ledger) Reserve(ctx context.Context, productID uint, quantity int, ref Reference) error {
	if quantity <= 0 {
		return apperror.Validation("reservation quantity must be positive")
	}

	db := l.db.WithContext(ctx)

	result := db.Model(&product.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return apperror.Persistence(result.Error, "reserve stock")
	}

	if result.RowsAffected == 0 {
		return l.rejection(ctx, productID, quantity)
	}

	return l.record(ctx, productID, MovementTypeReservation, quantity, ref)
}

// Release returns quantity units to stock, used when an order is cancelled.
// Soft-deleted products still get their stock back.
func (l *Ledger) Release(ctx context.Context, productID uint, quantity int, ref Reference) error {
	if quantity <= 0 {
		return apperror.Validation("release quantity must be positive")
	}

	result := l.db.WithContext(ctx).Unscoped().Model(&product.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return apperror.Persistence(result.Error, "release stock")
	}
	if result.RowsAffected == 0 {
		return apperror.ProductNotFound(productID)
	}

	return l.record(ctx, productID, MovementTypeRelease, quantity, ref)
}

// Available returns the current stock of a product
func (l *Ledger) Available(ctx context.Context, productID uint) (int, error) {
	var p product.Product
	err := l.db.WithContext(ctx).Select("id", "stock").First(&p, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperror.ProductNotFound(productID)
		}
		return 0, apperror.Persistence(err, "read stock")
	}
	return p.Stock, nil
}

// Movements lists the most recent ledger entries for a product
func (l *Ledger) Movements(ctx context.Context, productID uint, limit int) ([]InventoryMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var movements []InventoryMovement
	err := l.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, apperror.Persistence(err, "retrieve inventory movements")
	}
	return movements, nil
}

// rejection explains why a conditional decrement matched no row
func (l *Ledger) rejection(ctx context.Context, productID uint, quantity int) error {
	var p product.Product
	err := l.db.WithContext(ctx).First(&p, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ProductNotFound(productID)
		}
		return apperror.Persistence(err, "read stock")
	}

	l.log.WithFields(logrus.Fields{
		"product_id": productID,
		"available":  p.Stock,
		"requested":  quantity,
	}).Warn("stock reservation rejected")

	return apperror.InsufficientStock(p.Name, p.Stock, quantity)
}

func (l *Ledger) record(ctx context.Context, productID uint, kind MovementType, quantity int, ref Reference) error {
	var stock []int
	err := l.db.WithContext(ctx).Unscoped().Model(&product.Product{}).
		Where("id = ?", productID).
		Pluck("stock", &stock).Error
	if err != nil {
		return apperror.Persistence(err, "read stock")
	}

	movement := InventoryMovement{
		ProductID:     productID,
		MovementType:  kind,
		Quantity:      quantity,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		CreatedBy:     ref.ActorID,
	}
	if len(stock) > 0 {
		movement.StockAfter = stock[0]
	}

	if err := l.db.WithContext(ctx).Create(&movement).Error; err != nil {
		return apperror.Persistence(err, "record inventory movement")
	}
	return nil
}

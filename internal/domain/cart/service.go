// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	log    *logrus.Entry
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		log:    logger.ForService(log, "cart"),
	}
}

// WithTx returns a service bound to the caller's transaction
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx, config: s.config, log: s.log}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// UpdateItemRequest represents update cart item request.
// A quantity of zero or less removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// Get returns the user's cart, creating an empty one on first use
func (s *Service) Get(ctx context.Context, userID uint) (*View, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.refresh(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(cart, userID), nil
}

// Load returns the cart with products resolved, for checkout.
// A user without a cart gets apperror.ErrCartNotFound.
func (s *Service) Load(ctx context.Context, userID uint) (*Cart, error) {
	cart, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperror.New(apperror.KindCartNotFound, "cart not found")
	}
	if err := s.loadItems(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem adds quantity units of a product, merging into an existing line.
// The stock check here is advisory; the binding check happens at checkout.
func (s *Service) AddItem(ctx context.Context, userID uint, req *AddItemRequest) (*View, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, apperror.Validation("quantity must be at least 1")
	}

	var prod product.Product
	if err := s.db.WithContext(ctx).First(&prod, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ProductNotFound(req.ProductID)
		}
		return nil, apperror.Persistence(err, "retrieve product")
	}

	if !prod.InStock(quantity) {
		return nil, apperror.InsufficientStock(prod.Name, prod.Stock, quantity)
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A concurrent add of the same product lands on the unique index and
	// merges instead of creating a second line.
	item := CartItem{CartID: cart.ID, ProductID: prod.ID, Quantity: quantity}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, apperror.Persistence(err, "add item to cart")
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": prod.ID,
		"quantity":   quantity,
	}).Debug("item added to cart")

	if err := s.refresh(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(cart, userID), nil
}

// SetItemQuantity overwrites a line's quantity; zero or less removes it
func (s *Service) SetItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*View, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}

	cart, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return s.view(nil, userID), nil
	}

	result := s.db.WithContext(ctx).Model(&CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cart.ID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, apperror.Persistence(result.Error, "update cart item")
	}
	if result.RowsAffected == 0 {
		return nil, itemNotFound(itemID)
	}

	if err := s.refresh(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(cart, userID), nil
}

// RemoveItem deletes a line from the user's cart.
// A user who has no cart yet gets an empty cart back rather than an error.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uint) (*View, error) {
	cart, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return s.view(nil, userID), nil
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cart.ID).
		Delete(&CartItem{})
	if result.Error != nil {
		return nil, apperror.Persistence(result.Error, "remove cart item")
	}
	if result.RowsAffected == 0 {
		return nil, itemNotFound(itemID)
	}

	if err := s.refresh(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(cart, userID), nil
}

// Consume removes exactly the given lines at their given quantities.
// A line that was removed or changed since it was read fails with
// apperror.KindConflict; the caller's transaction must then roll back.
// Lines added meanwhile stay in the cart.
func (s *Service) Consume(ctx context.Context, cartID uint, lines []CartItem) error {
	db := s.db.WithContext(ctx)

	for _, line := range lines {
		result := db.Where("id = ? AND cart_id = ? AND quantity = ?", line.ID, cartID, line.Quantity).
			Delete(&CartItem{})
		if result.Error != nil {
			return apperror.Persistence(result.Error, "consume cart item")
		}
		if result.RowsAffected != 1 {
			return apperror.New(apperror.KindConflict, "cart changed during checkout; review it and try again")
		}
	}

	remaining := &Cart{ID: cartID}
	if err := s.loadItems(ctx, remaining); err != nil {
		return err
	}
	err := db.Model(&Cart{}).Where("id = ?", cartID).
		Updates(map[string]interface{}{"total_amount": remaining.Subtotal(), "updated_at": time.Now()}).Error
	if err != nil {
		return apperror.Persistence(err, "update cart total")
	}
	return nil
}

// find returns the user's cart or nil when none exists
func (s *Service) find(ctx context.Context, userID uint) (*Cart, error) {
	var cart Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Persistence(err, "retrieve cart")
	}
	return &cart, nil
}

// getOrCreate tolerates two first requests racing to create the cart
func (s *Service) getOrCreate(ctx context.Context, userID uint) (*Cart, error) {
	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&Cart{UserID: userID}).Error
	if err != nil {
		return nil, apperror.Persistence(err, "create cart")
	}

	cart, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperror.New(apperror.KindCartNotFound, "cart not found")
	}
	return cart, nil
}

func (s *Service) loadItems(ctx context.Context, cart *Cart) error {
	var items []CartItem
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cart.ID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return apperror.Persistence(err, "retrieve cart items")
	}
	cart.Items = items
	return nil
}

// refresh reloads lines and persists the recomputed total when it drifted
func (s *Service) refresh(ctx context.Context, cart *Cart) error {
	if err := s.loadItems(ctx, cart); err != nil {
		return err
	}

	total := cart.Subtotal()
	if total.Equal(cart.TotalAmount) {
		return nil
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Model(&Cart{}).Where("id = ?", cart.ID).
		Updates(map[string]interface{}{"total_amount": total, "updated_at": now}).Error
	if err != nil {
		return apperror.Persistence(err, "update cart total")
	}
	cart.TotalAmount = total
	cart.UpdatedAt = now
	return nil
}

func (s *Service) view(cart *Cart, userID uint) *View {
	return NewView(cart, userID, s.config.Checkout.TaxDisplayRate)
}

func itemNotFound(itemID uint) error {
	return apperror.New(apperror.KindItemNotFound, "item %d not found in cart", itemID)
}

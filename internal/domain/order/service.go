// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/infrastructure/database"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	ledger *inventory.Ledger
	log    *logrus.Entry
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, ledger *inventory.Ledger, log logrus.FieldLogger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		ledger: ledger,
		log:    logger.ForService(log, "order"),
	}
}

// WithTx returns a service bound to the caller's transaction
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx, config: s.config, ledger: s.ledger.WithTx(tx), log: s.log}
}

// ListRequest represents order list query parameters
type ListRequest struct {
	pagination.Request
	Status OrderStatus `form:"status"`
}

// ListResponse represents orders with pagination
type ListResponse struct {
	Orders     []Order               `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

// UpdateStatusRequest represents an administrative status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment"`
}

// Create persists an order with its items and history in one insert
func (s *Service) Create(ctx context.Context, order *Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.Persistence(err, "create order")
	}
	return nil
}

// Get retrieves an order with items and status history
func (s *Service) Get(ctx context.Context, id uint) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(id)
		}
		return nil, apperror.Persistence(err, "retrieve order")
	}
	return &order, nil
}

// GetForUser retrieves an order visible to the caller.
// Non-admins see only their own orders; others look missing.
func (s *Service) GetForUser(ctx context.Context, id, userID uint, isAdmin bool) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, orderNotFound(id)
	}
	return order, nil
}

// ListForUser returns the caller's orders, newest first
func (s *Service) ListForUser(ctx context.Context, userID uint, req pagination.Request) (*ListResponse, error) {
	query := s.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)
	return s.list(ctx, query, req, false)
}

// List returns all orders for administrators, newest first
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	query := s.db.WithContext(ctx).Model(&Order{})

	if req.Status != "" {
		if !req.Status.IsValid() {
			return nil, apperror.Validation("unknown order status %q", req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}

	return s.list(ctx, query, req.Request, true)
}

func (s *Service) list(ctx context.Context, query *gorm.DB, req pagination.Request, withUser bool) (*ListResponse, error) {
	page := req.Normalize(s.config.Checkout.DefaultPageSize, s.config.Checkout.MaxPageSize)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Persistence(err, "count orders")
	}

	find := query.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
	if withUser {
		find = find.Preload("User")
	}

	var orders []Order
	err := find.Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperror.Persistence(err, "retrieve orders")
	}

	return &ListResponse{
		Orders:     orders,
		Pagination: pagination.New(page, total),
	}, nil
}

// SetStatus moves an order through its lifecycle.
// The write is conditional on the status that was read, so of two racing
// changes only one applies. Cancellation returns every item to stock in the
// same transaction.
func (s *Service) SetStatus(ctx context.Context, id uint, req *UpdateStatusRequest, actorID uint) (*Order, error) {
	if !req.Status.IsValid() {
		return nil, apperror.Validation("unknown order status %q", req.Status)
	}

	var changed bool
	var from OrderStatus

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *gorm.DB) error {
		txSvc := s.WithTx(tx)

		current, err := txSvc.Get(ctx, id)
		if err != nil {
			return err
		}
		from = current.Status

		if current.Status == req.Status {
			return nil
		}
		if req.Status == OrderStatusCancelled && !current.CanBeCancelled() {
			return apperror.New(apperror.KindInvalidTransition,
				"order %s can no longer be cancelled (status %s)", current.OrderNumber, current.Status)
		}
		if !CanTransition(current.Status, req.Status) {
			return apperror.New(apperror.KindInvalidTransition,
				"cannot change order status from %s to %s", current.Status, req.Status)
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":     req.Status,
			"updated_at": now,
		}
		if column := statusTimestampColumn(req.Status); column != "" {
			updates[column] = now
		}

		result := tx.WithContext(ctx).Model(&Order{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(updates)
		if result.Error != nil {
			return apperror.Persistence(result.Error, "update order status")
		}
		if result.RowsAffected == 0 {
			return apperror.New(apperror.KindConflict, "order %d was modified concurrently", id)
		}

		comment := req.Comment
		if comment == "" {
			comment = fmt.Sprintf("Status changed from %s to %s", current.Status, req.Status)
		}
		history := OrderStatusHistory{
			OrderID:    id,
			FromStatus: current.Status,
			Status:     req.Status,
			Comment:    comment,
			CreatedBy:  actorID,
		}
		if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
			return apperror.Persistence(err, "record status history")
		}

		if req.Status == OrderStatusCancelled {
			ref := inventory.OrderReference(id, actorID)
			for _, item := range current.Items {
				if err := txSvc.ledger.Release(ctx, item.ProductID, item.Quantity, ref); err != nil {
					return err
				}
			}
		}

		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.WithFields(logrus.Fields{
			"order_id": id,
			"from":     from,
			"to":       req.Status,
			"actor_id": actorID,
		}).Info("order status changed")
	}

	return s.Get(ctx, id)
}

func orderNotFound(id uint) error {
	return apperror.New(apperror.KindOrderNotFound, "order %d not found", id)
}

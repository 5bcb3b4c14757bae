// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/infrastructure/database"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

const tracerName = "github.com/your-org/storefront-backend/internal/domain/checkout"

// Service converts a cart into an order
type Service struct {
	db     *gorm.DB
	carts  *cart.Service
	orders *order.Service
	ledger *inventory.Ledger
	tracer trace.Tracer
	log    *logrus.Entry
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, carts *cart.Service, orders *order.Service, ledger *inventory.Ledger, log logrus.FieldLogger) *Service {
	return &Service{
		db:     db,
		carts:  carts,
		orders: orders,
		ledger: ledger,
		tracer: otel.Tracer(tracerName),
		log:    logger.ForService(log, "checkout"),
	}
}

// PlaceOrderRequest represents the order placement payload
type PlaceOrderRequest struct {
	ShippingAddress order.Address `json:"shippingAddress"`
}

// PlaceOrder turns the user's cart into a pending order.
// Consuming the cart lines, order creation and stock reservation commit
// together or not at all; on any failure the cart is left exactly as it was.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, address order.Address) (*order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PlaceOrder",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer span.End()

	log := s.log.WithField("user_id", userID)

	placed, err := s.placeOrder(ctx, userID, address, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperror.KindOf(err)))

		entry := log.WithError(err).WithField("code", apperror.KindOf(err))
		switch apperror.KindOf(err) {
		case apperror.KindPersistence, apperror.KindDataInconsistency:
			entry.WithFields(logrus.Fields{
				"db_error_class": database.ClassifyError(err).String(),
				"retryable":      database.IsRetryable(err),
			}).Error("checkout failed")
		default:
			entry.Info("checkout rejected")
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", int64(placed.ID)),
		attribute.String("order.number", placed.OrderNumber),
		attribute.String("order.total", placed.TotalAmount.StringFixed(2)),
	)
	log.WithFields(logrus.Fields{
		"order_id":     placed.ID,
		"order_number": placed.OrderNumber,
		"total":        placed.TotalAmount.StringFixed(2),
		"items":        len(placed.Items),
	}).Info("order placed")

	return placed, nil
}

func (s *Service) placeOrder(ctx context.Context, userID uint, address order.Address, span trace.Span) (*order.Order, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}

	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrCartNotFound) {
			return nil, emptyCart()
		}
		return nil, err
	}
	if c.IsEmpty() {
		return nil, emptyCart()
	}

	lines, err := snapshot(c)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("cart.lines", len(lines)))

	placed := order.NewOrder(userID, address, lines)

	err = database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *gorm.DB) error {
		// consuming first locks the lines, so a duplicate checkout of the
		// same cart conflicts here instead of producing a second order
		if err := s.carts.WithTx(tx).Consume(ctx, c.ID, c.Items); err != nil {
			return err
		}

		if err := s.orders.WithTx(tx).Create(ctx, placed); err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		ref := inventory.OrderReference(placed.ID, userID)
		for _, item := range reservationOrder(placed.Items) {
			if err := ledger.Reserve(ctx, item.ProductID, item.Quantity, ref); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// the order is committed; a cancelled request must not report failure
	stored, err := s.orders.Get(context.WithoutCancel(ctx), placed.ID)
	if err != nil {
		s.log.WithError(err).WithField("order_id", placed.ID).Warn("failed to reload placed order")
		return placed, nil
	}
	return stored, nil
}

// snapshot validates every line against live stock and freezes its price.
// Nothing is written; the first failing line aborts checkout.
func snapshot(c *cart.Cart) ([]order.Line, error) {
	lines := make([]order.Line, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Product == nil {
			return nil, apperror.ProductNotFound(item.ProductID)
		}
		if !item.Product.InStock(item.Quantity) {
			return nil, apperror.InsufficientStock(item.Product.Name, item.Product.Stock, item.Quantity)
		}
		lines = append(lines, order.Line{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		})
	}
	return lines, nil
}

// reservationOrder sorts by product so concurrent checkouts lock rows in the
// same sequence.
func reservationOrder(items []order.OrderItem) []order.OrderItem {
	sorted := make([]order.OrderItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

func emptyCart() error {
	return apperror.New(apperror.KindEmptyCart, "cart is empty")
}

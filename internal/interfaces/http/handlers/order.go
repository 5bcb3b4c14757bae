// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
	redisstore "github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

// IdempotencyKeyHeader carries the client's retry key for order placement
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// IdempotencyStore remembers which order an Idempotency-Key produced
type IdempotencyStore interface {
	Claim(ctx context.Context, userID uint, key string) (redisstore.Claim, error)
	Complete(ctx context.Context, userID uint, key string, orderID uint) error
	Release(ctx context.Context, userID uint, key string) error
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	checkoutService *checkout.Service
	orderService    *order.Service
	idempotency     IdempotencyStore
	log             logrus.FieldLogger
}

// NewOrderHandler creates a new order handler.
// idempotency may be nil, in which case Idempotency-Key is ignored.
func NewOrderHandler(checkoutService *checkout.Service, orderService *order.Service, idempotency IdempotencyStore, log logrus.FieldLogger) *OrderHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &OrderHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
		idempotency:     idempotency,
		log:             log,
	}
}

// PlaceOrder handles POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		respondError(c, apperror.Validation("%s must be at most %d characters", IdempotencyKeyHeader, maxIdempotencyKeyLen))
		return
	}

	claimed := false
	if key != "" && h.idempotency != nil {
		claim, err := h.idempotency.Claim(ctx, userID, key)
		switch {
		case err != nil:
			// Redis unavailable: place the order without replay protection
			h.log.WithError(err).WithField("user_id", userID).Warn("Idempotency store unavailable")
		case claim.State == redisstore.ClaimInFlight:
			respondError(c, apperror.New(apperror.KindConflict, "a request with this %s is already in progress", IdempotencyKeyHeader))
			return
		case claim.State == redisstore.ClaimCompleted:
			existing, err := h.orderService.GetForUser(ctx, claim.OrderID, userID, false)
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, "Order already placed", existing)
			return
		default:
			claimed = true
		}
	}

	placed, err := h.checkoutService.PlaceOrder(ctx, userID, req.ShippingAddress)
	if err != nil {
		if claimed {
			// the request context may already be done; release on a fresh one
			if relErr := h.idempotency.Release(context.WithoutCancel(ctx), userID, key); relErr != nil {
				h.log.WithError(relErr).Warn("Failed to release idempotency key")
			}
		}
		respondError(c, err)
		return
	}

	if claimed {
		if err := h.idempotency.Complete(context.WithoutCancel(ctx), userID, key, placed.ID); err != nil {
			h.log.WithError(err).WithField("order_id", placed.ID).Warn("Failed to record idempotency key")
		}
	}

	respond(c, http.StatusCreated, "Order placed successfully", placed)
}

// GetMyOrders handles GET /orders/my-orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req pagination.Request
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.orderService.ListForUser(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Orders retrieved successfully", result)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetForUser(c.Request.Context(), orderID, userID, middleware.IsAdminFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order retrieved successfully", o)
}

// AdminListOrders handles GET /orders for administrators
func (h *OrderHandler) AdminListOrders(c *gin.Context) {
	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.orderService.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Orders retrieved successfully", result)
}

// AdminUpdateStatus handles PUT /orders/:id/status
func (h *OrderHandler) AdminUpdateStatus(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.orderService.SetStatus(c.Request.Context(), orderID, &req, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order status updated successfully", updated)
}

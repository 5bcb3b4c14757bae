// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// InvoiceRenderer turns an order into a printable invoice
type InvoiceRenderer interface {
	GenerateInvoice(ctx context.Context, o *order.Order) ([]byte, error)
	RenderHTML(o *order.Order) (string, error)
}

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	orderService *order.Service
	userService  *user.Service
	renderer     InvoiceRenderer
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, userService *user.Service, renderer InvoiceRenderer) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		userService:  userService,
		renderer:     renderer,
	}
}

// GenerateInvoice handles GET /orders/:id/invoice
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}

	pdfBytes, err := h.renderer.GenerateInvoice(c.Request.Context(), o)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.KindPersistence, err, "failed to generate invoice"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
	c.Header("Content-Length", strconv.Itoa(len(pdfBytes)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// PreviewInvoice handles GET /orders/:id/invoice/preview
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}

	html, err := h.renderer.RenderHTML(o)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.KindPersistence, err, "failed to render invoice"))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *InvoiceHandler) loadOrder(c *gin.Context) (*order.Order, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	o, err := h.orderService.GetForUser(ctx, orderID, userID, middleware.IsAdminFromContext(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	// customer details are optional on the invoice
	if customer, err := h.userService.GetByID(ctx, o.UserID); err == nil {
		o.User = customer
	}
	return o, true
}

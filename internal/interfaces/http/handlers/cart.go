// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.cartService.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart retrieved successfully", view)
}

// AddToCart handles POST /cart
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.cartService.AddItem(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Item added to cart successfully", view)
}

// UpdateCartItem handles PUT /cart/:itemId
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	var req cart.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.cartService.SetItemQuantity(c.Request.Context(), userID, itemID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart item updated successfully", view)
}

// RemoveCartItem handles DELETE /cart/:itemId
func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	view, err := h.cartService.RemoveItem(c.Request.Context(), userID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Item removed from cart successfully", view)
}

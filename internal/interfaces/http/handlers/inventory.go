// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-backend/internal/domain/inventory"
)

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	ledger *inventory.Ledger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// GetMovements handles GET /admin/inventory/:productId/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	ctx := c.Request.Context()
	stock, err := h.ledger.Available(ctx, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	movements, err := h.ledger.Movements(ctx, productID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Inventory movements retrieved successfully", gin.H{
		"productId": productID,
		"stock":     stock,
		"movements": movements,
	})
}

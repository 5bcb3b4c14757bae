// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-backend/internal/domain/analytics"
)

// AnalyticsHandler handles analytics endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetDashboard handles GET /admin/analytics/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.DefaultQuery("low_stock", strconv.Itoa(analytics.DefaultLowStockThreshold)))

	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Dashboard statistics retrieved successfully", stats)
}

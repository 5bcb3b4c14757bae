// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
)

// Dependencies holds what the route handlers are built from
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	Log         *logrus.Logger
	Tokens      middleware.TokenValidator
	Idempotency handlers.IdempotencyStore
	Invoices    handlers.InvoiceRenderer
}

// SetupRoutes wires every API route under rg
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	cfg := deps.Config
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}

	ledger := inventory.NewLedger(deps.DB, log)
	productService := product.NewService(deps.DB, cfg, log)
	cartService := cart.NewService(deps.DB, cfg, log)
	orderService := order.NewService(deps.DB, cfg, ledger, log)
	checkoutService := checkout.NewService(deps.DB, cartService, orderService, ledger, log)
	userService := user.NewService(deps.DB, auth.NewPasswordManager(cfg))

	invoices := deps.Invoices
	if invoices == nil {
		invoices = pdf.NewService(cfg)
	}

	authRequired := middleware.AuthMiddleware(deps.Tokens)

	SetupProductRoutes(rg, handlers.NewProductHandler(productService), authRequired)
	SetupCartRoutes(rg, handlers.NewCartHandler(cartService), authRequired)
	SetupOrderRoutes(rg,
		handlers.NewOrderHandler(checkoutService, orderService, deps.Idempotency, log),
		handlers.NewInvoiceHandler(orderService, userService, invoices),
		authRequired,
	)
	SetupAdminRoutes(rg,
		handlers.NewInventoryHandler(ledger),
		handlers.NewAnalyticsHandler(analytics.NewService(deps.DB)),
		authRequired,
	)
}

// SetupProductRoutes sets up product related routes
func SetupProductRoutes(rg *gin.RouterGroup, h *handlers.ProductHandler, authRequired gin.HandlerFunc) {
	products := rg.Group("/products")
	{
		products.GET("", h.GetProducts)
		products.GET("/categories", h.GetCategories)
		products.GET("/:id", h.GetProduct)

		admin := products.Group("")
		admin.Use(authRequired, middleware.AdminMiddleware())
		{
			admin.POST("", h.CreateProduct)
			admin.PUT("/:id", h.UpdateProduct)
			admin.DELETE("/:id", h.DeleteProduct)
		}
	}
}

// SetupCartRoutes sets up cart related routes
func SetupCartRoutes(rg *gin.RouterGroup, h *handlers.CartHandler, authRequired gin.HandlerFunc) {
	carts := rg.Group("/cart")
	carts.Use(authRequired)
	{
		carts.GET("", h.GetCart)
		carts.POST("", h.AddToCart)
		carts.PUT("/:itemId", h.UpdateCartItem)
		carts.DELETE("/:itemId", h.RemoveCartItem)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *handlers.OrderHandler, invoices *handlers.InvoiceHandler, authRequired gin.HandlerFunc) {
	orders := rg.Group("/orders")
	orders.Use(authRequired)
	{
		orders.POST("", h.PlaceOrder)
		orders.GET("/my-orders", h.GetMyOrders)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/invoice", invoices.GenerateInvoice)
		orders.GET("/:id/invoice/preview", invoices.PreviewInvoice)

		admin := orders.Group("")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("", h.AdminListOrders)
			admin.PUT("/:id/status", h.AdminUpdateStatus)
		}
	}
}

// SetupAdminRoutes sets up admin-only operational routes
func SetupAdminRoutes(rg *gin.RouterGroup, inventoryHandler *handlers.InventoryHandler, analyticsHandler *handlers.AnalyticsHandler, authRequired gin.HandlerFunc) {
	admin := rg.Group("/admin")
	admin.Use(authRequired, middleware.AdminMiddleware())
	{
		admin.GET("/inventory/:productId/movements", inventoryHandler.GetMovements)
		admin.GET("/analytics/dashboard", analyticsHandler.GetDashboard)
	}
}

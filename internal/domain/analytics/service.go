// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// DefaultLowStockThreshold marks products worth restocking
const DefaultLowStockThreshold = 5

const topProductsLimit = 5

// Service handles analytics business logic
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// DashboardStats represents the admin overview of orders and stock
type DashboardStats struct {
	// Sales metrics; cancelled orders never count as revenue
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	RevenueToday  decimal.Decimal `json:"revenue_today"`
	TotalOrders   int64           `json:"total_orders"`
	OrdersToday   int64           `json:"orders_today"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	SalesByStatus []StatusData    `json:"sales_by_status"`

	// Product metrics
	TotalProducts      int64              `json:"total_products"`
	OutOfStockProducts int64              `json:"out_of_stock_products"`
	LowStockProducts   []LowStockData     `json:"low_stock_products"`
	TopProducts        []ProductSalesData `json:"top_products"`
}

type StatusData struct {
	Status order.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
	Value  decimal.Decimal   `json:"value"`
}

type LowStockData struct {
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name"`
	CurrentStock int    `json:"current_stock"`
}

type ProductSalesData struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	TotalSold   int64           `json:"total_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// GetDashboardStats retrieves overall dashboard statistics
func (s *Service) GetDashboardStats(ctx context.Context, lowStockThreshold int) (*DashboardStats, error) {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}

	db := s.db.WithContext(ctx)
	stats := &DashboardStats{}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if err := db.Model(&order.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS value").
		Group("status").
		Order("status").
		Scan(&stats.SalesByStatus).Error; err != nil {
		return nil, apperror.Persistence(err, "aggregate orders by status")
	}

	stats.TotalRevenue = decimal.Zero
	var revenueOrders int64
	for _, row := range stats.SalesByStatus {
		stats.TotalOrders += row.Count
		if row.Status == order.OrderStatusCancelled {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(row.Value)
		revenueOrders += row.Count
	}
	if revenueOrders > 0 {
		stats.AvgOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(revenueOrders)).Round(2)
	}

	var todayRows []StatusData
	if err := db.Model(&order.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS value").
		Where("created_at >= ?", today).
		Group("status").
		Scan(&todayRows).Error; err != nil {
		return nil, apperror.Persistence(err, "aggregate today's orders")
	}
	stats.RevenueToday = decimal.Zero
	for _, row := range todayRows {
		stats.OrdersToday += row.Count
		if row.Status != order.OrderStatusCancelled {
			stats.RevenueToday = stats.RevenueToday.Add(row.Value)
		}
	}

	if err := db.Model(&product.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, apperror.Persistence(err, "count products")
	}
	if err := db.Model(&product.Product{}).Where("stock = 0").Count(&stats.OutOfStockProducts).Error; err != nil {
		return nil, apperror.Persistence(err, "count out of stock products")
	}

	if err := db.Model(&product.Product{}).
		Select("id AS product_id, name AS product_name, stock AS current_stock").
		Where("stock <= ?", lowStockThreshold).
		Order("stock ASC, id ASC").
		Scan(&stats.LowStockProducts).Error; err != nil {
		return nil, apperror.Persistence(err, "list low stock products")
	}

	if err := db.Table("order_items").
		Select("order_items.product_id, MAX(order_items.product_name) AS product_name, "+
			"SUM(order_items.quantity) AS total_sold, COALESCE(SUM(order_items.line_total), 0) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", order.OrderStatusCancelled).
		Group("order_items.product_id").
		Order("total_sold DESC, order_items.product_id ASC").
		Limit(topProductsLimit).
		Scan(&stats.TopProducts).Error; err != nil {
		return nil, apperror.Persistence(err, "rank top products")
	}

	return stats, nil
}

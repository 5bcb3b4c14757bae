// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:  db,
		log: logger.ForService(log, "migration"),
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain - Base tables
		&user.User{},

		// Catalog
		&product.Product{},

		// Cart domain
		&cart.Cart{},
		&cart.CartItem{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Ledger
		&inventory.InventoryMovement{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations(ctx context.Context) error {
	m.log.Info("running database auto-migrations")

	db := m.db.WithContext(ctx)
	for _, model := range Models() {
		m.log.Debugf("migrating model: %T", model)
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",

		// Order status history indexes
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		// Ledger indexes
		"CREATE INDEX IF NOT EXISTS idx_inventory_movements_product_created ON inventory_movements(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_movements_reference ON inventory_movements(reference_type, reference_id)",
	}

	db := m.db.WithContext(ctx)
	failed := 0
	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).WithField("sql", indexSQL).Warn("failed to create index")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d indexes failed", failed, len(indexes))
	}
	m.log.WithField("count", len(indexes)).Info("indexes created")
	return nil
}

// SeedInitialData inserts the demo catalog and the two development accounts
func (m *Migration) SeedInitialData(ctx context.Context, users *user.Service) error {
	if err := m.seedUsers(ctx, users); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	if err := m.seedProducts(ctx); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	m.log.Info("initial data seeded")
	return nil
}

func (m *Migration) seedUsers(ctx context.Context, users *user.Service) error {
	accounts := []struct {
		email, name, password string
		isAdmin               bool
	}{
		{"admin@example.com", "Admin User", "admin123", true},
		{"user@example.com", "John Doe", "user1234", false},
	}

	for _, a := range accounts {
		u, err := users.EnsureUser(ctx, a.email, a.name, a.password, a.isAdmin)
		if err != nil {
			return err
		}
		m.log.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email, "admin": u.IsAdmin}).Info("seeded user")
	}
	return nil
}

// seedProducts fills an empty catalog; an existing catalog is left alone
func (m *Migration) seedProducts(ctx context.Context) error {
	db := m.db.WithContext(ctx)

	var count int64
	if err := db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.log.WithField("count", count).Info("catalog already seeded")
		return nil
	}

	products := SeedProducts()
	if err := db.Create(&products).Error; err != nil {
		return err
	}

	m.log.WithField("count", len(products)).Info("seeded products")
	return nil
}

// SeedProducts returns the demo catalog
func SeedProducts() []product.Product {
	price := decimal.RequireFromString
	return []product.Product{
		{
			Name:        "Premium Kitchen Knife Set",
			Description: "Professional-grade stainless steel knives for all your cooking needs. Includes chef's knife, paring knife, and utility knife.",
			Price:       price("129.99"),
			Image:       "https://images.pexels.com/photos/4226803/pexels-photo-4226803.jpeg",
			Category:    product.CategoryKitchen,
			Stock:       25,
			IsFeatured:  true,
		},
		{
			Name:        "Ceramic Dinnerware Set",
			Description: "Elegant 16-piece ceramic dinnerware set perfect for everyday dining or special occasions. Dishwasher and microwave safe.",
			Price:       price("89.99"),
			Image:       "https://images.pexels.com/photos/6508868/pexels-photo-6508868.jpeg",
			Category:    product.CategoryKitchen,
			Stock:       15,
			IsFeatured:  true,
		},
		{
			Name:        "Luxury Bath Towel Set",
			Description: "Ultra-soft 100% cotton towels that provide exceptional absorbency and comfort. Set includes 4 bath towels and 4 hand towels.",
			Price:       price("79.99"),
			Image:       "https://images.pexels.com/photos/7795121/pexels-photo-7795121.jpeg",
			Category:    product.CategoryBathroom,
			Stock:       30,
			IsFeatured:  true,
		},
		{
			Name:        "Modern Table Lamp",
			Description: "Contemporary LED table lamp with adjustable brightness and sleek metal design. Perfect for bedside or office use.",
			Price:       price("59.99"),
			Image:       "https://images.pexels.com/photos/1112598/pexels-photo-1112598.jpeg",
			Category:    product.CategoryBedroom,
			Stock:       20,
		},
		{
			Name:        "Storage Ottoman",
			Description: "Multi-functional storage ottoman that serves as seating and hidden storage. Premium faux leather upholstery.",
			Price:       price("149.99"),
			Image:       "https://images.pexels.com/photos/1350789/pexels-photo-1350789.jpeg",
			Category:    product.CategoryLivingRoom,
			Stock:       12,
			IsFeatured:  true,
		},
		{
			Name:        "Microfiber Cleaning Cloths",
			Description: "Pack of 12 premium microfiber cloths for streak-free cleaning. Perfect for windows, cars, and household surfaces.",
			Price:       price("19.99"),
			Image:       "https://images.pexels.com/photos/4239123/pexels-photo-4239123.jpeg",
			Category:    product.CategoryCleaning,
			Stock:       50,
		},
		{
			Name:        "Bamboo Cutting Board Set",
			Description: "Eco-friendly bamboo cutting boards in three sizes. Natural antimicrobial properties and knife-friendly surface.",
			Price:       price("39.99"),
			Image:       "https://images.pexels.com/photos/4198790/pexels-photo-4198790.jpeg",
			Category:    product.CategoryKitchen,
			Stock:       18,
		},
		{
			Name:        "Glass Storage Containers",
			Description: "Set of 6 borosilicate glass containers with airtight lids. Perfect for food storage and meal prep.",
			Price:       price("49.99"),
			Image:       "https://images.pexels.com/photos/4198562/pexels-photo-4198562.jpeg",
			Category:    product.CategoryStorage,
			Stock:       22,
			IsFeatured:  true,
		},
	}
}

// GetTableInfo logs row counts for every public table
func (m *Migration) GetTableInfo(ctx context.Context) error {
	db := m.db.WithContext(ctx)

	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	var totalRecords int64
	for _, table := range tables {
		var count int64
		if err := db.Table(table).Count(&count).Error; err != nil {
			return err
		}
		totalRecords += count
		m.log.WithFields(logrus.Fields{"table": table, "records": count}).Debug("table info")
	}

	m.log.WithFields(logrus.Fields{"tables": len(tables), "records": totalRecords}).Info("database tables")
	return nil
}

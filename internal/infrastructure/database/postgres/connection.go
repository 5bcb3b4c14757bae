// internal/infrastructure/database/postgres/connection.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

// Connection wraps the gorm handle and its pool
type Connection struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewConnection opens the Postgres pool and verifies it with a ping
func NewConnection(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Connection, error) {
	db, err := gorm.Open(pgdriver.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger:         logger.Gorm(log, cfg),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn := &Connection{db: db, log: logger.ForService(log, "postgres")}
	conn.log.WithFields(logrus.Fields{
		"host":           cfg.Database.Host,
		"database":       cfg.Database.Name,
		"max_open_conns": cfg.Database.MaxOpenConns,
	}).Info("database connection established")

	return conn, nil
}

// GetDB returns the gorm handle
func (c *Connection) GetDB() *gorm.DB {
	return c.db
}

// Health pings the database
func (c *Connection) Health(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close closes the pool
func (c *Connection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("Tracing disabled")
	}

	// Connect to database
	db, err := postgres.NewConnection(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Redis backs rate limiting and idempotency; both degrade when it is missing
	var redisClient *goredis.Client
	rc, err := redis.NewConnection(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without rate limiting and idempotency")
	} else {
		defer rc.Close()
		redisClient = rc.GetClient()
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), log)

	if err := migration.RunAutoMigrations(ctx); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}

	if err := migration.CreateIndexes(ctx); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		users := user.NewService(db.GetDB(), auth.NewPasswordManager(cfg))
		if err := migration.SeedInitialData(ctx, users); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
		if err := migration.GetTableInfo(ctx); err != nil {
			log.WithError(err).Debug("Table info unavailable")
		}
	}

	server := http.NewServer(cfg, db.GetDB(), redisClient, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server failed")
		}
	}

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to flush traces")
		}
	}

	log.Info("Server shutdown completed")
}

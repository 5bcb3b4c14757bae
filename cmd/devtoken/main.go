// cmd/devtoken/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

// devtoken prints a bearer token for a seeded user, since the API has no login route.
func main() {
	email := flag.String("email", "user@example.com", "email of an existing user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		logrus.Fatal("devtoken refuses to run in production")
	}

	log := logger.New(cfg)
	ctx := context.Background()

	db, err := postgres.NewConnection(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	u, err := user.NewService(db.GetDB(), auth.NewPasswordManager(cfg)).GetByEmail(ctx, *email)
	if err != nil {
		log.WithError(err).Fatal("User lookup failed")
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		log.WithError(err).Fatal("Failed to sign token")
	}

	fmt.Fprintln(os.Stdout, token)
}

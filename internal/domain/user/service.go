// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Service manages the local user directory
type Service struct {
	db        *gorm.DB
	passwords *auth.PasswordManager
}

// NewService creates a new user service
func NewService(db *gorm.DB, passwords *auth.PasswordManager) *Service {
	return &Service{db: db, passwords: passwords}
}

// EnsureUser creates the user if the email is unknown and returns the stored row
func (s *Service) EnsureUser(ctx context.Context, email, name, password string, isAdmin bool) (*User, error) {
	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}

	u := User{Email: email, Name: name, Password: hash, IsAdmin: isAdmin}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&u).Error
	if err != nil {
		return nil, apperror.Persistence(err, "create user")
	}

	return s.GetByEmail(ctx, email)
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByEmail retrieves a user by email
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.New(apperror.KindUnauthorized, "user not found")
	}
	return apperror.Persistence(err, "retrieve user")
}

// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

// Service handles catalog reads and administrative edits
type Service struct {
	db     *gorm.DB
	config *config.Config
	log    *logrus.Entry
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		log:    logger.ForService(log, "product"),
	}
}

// ListRequest represents product list query parameters
type ListRequest struct {
	pagination.Request
	Category   Category `form:"category"`
	IsFeatured *bool    `form:"featured"`
	Search     string   `form:"search"`
	SortBy     string   `form:"sort_by,default=created_at"`
	SortOrder  string   `form:"sort_order,default=desc"`
}

// CreateRequest represents product creation data
type CreateRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    Category        `json:"category" binding:"required"`
	IsFeatured  bool            `json:"is_featured"`
}

// UpdateRequest is a partial product patch
type UpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *Category        `json:"category"`
	IsFeatured  *bool            `json:"is_featured"`
}

// ListResponse represents products with pagination
type ListResponse struct {
	Products   []Product             `json:"products"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Validate checks creation data
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperror.Validation("product name is required")
	}
	return validateFields(&r.Price, &r.Stock, &r.Category)
}

// Validate checks the fields present in the patch
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return apperror.Validation("product name cannot be empty")
	}
	return validateFields(r.Price, r.Stock, r.Category)
}

func validateFields(price *decimal.Decimal, stock *int, category *Category) error {
	if price != nil && price.IsNegative() {
		return apperror.Validation("price cannot be negative")
	}
	if stock != nil && *stock < 0 {
		return apperror.Validation("stock cannot be negative")
	}
	if category != nil && !category.IsValid() {
		return apperror.Validation("unknown category %q", *category)
	}
	return nil
}

// FindProduct retrieves a single product by ID
func (s *Service) FindProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ProductNotFound(id)
		}
		return nil, apperror.Persistence(err, "retrieve product")
	}
	return &product, nil
}

// List retrieves products with filtering and pagination
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	page := req.Request.Normalize(s.config.Checkout.DefaultPageSize, s.config.Checkout.MaxPageSize)

	query := s.db.WithContext(ctx).Model(&Product{})

	if req.Category != "" {
		if !req.Category.IsValid() {
			return nil, apperror.Validation("unknown category %q", req.Category)
		}
		query = query.Where("category = ?", req.Category)
	}

	if req.IsFeatured != nil {
		query = query.Where("is_featured = ?", *req.IsFeatured)
	}

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Persistence(err, "count products")
	}

	var products []Product
	err := query.Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&products).Error
	if err != nil {
		return nil, apperror.Persistence(err, "retrieve products")
	}

	return &ListResponse{
		Products:   products,
		Pagination: pagination.New(page, total),
	}, nil
}

// Create creates a new product
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product := Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price.Round(2),
		Stock:       req.Stock,
		Category:    req.Category,
		IsFeatured:  req.IsFeatured,
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, apperror.Persistence(err, "create product")
	}

	s.log.WithFields(logrus.Fields{"product_id": product.ID, "stock": product.Stock}).Info("product created")
	return &product, nil
}

// Update applies a partial patch to an existing product
func (s *Service) Update(ctx context.Context, id uint, req *UpdateRequest) (*Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := s.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.Price != nil {
		updates["price"] = req.Price.Round(2)
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, apperror.Persistence(err, "update product")
	}

	return s.FindProduct(ctx, id)
}

// Delete soft deletes a product
func (s *Service) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Product{}, id)
	if result.Error != nil {
		return apperror.Persistence(result.Error, "delete product")
	}
	if result.RowsAffected == 0 {
		return apperror.ProductNotFound(id)
	}
	return nil
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"stock":      true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}

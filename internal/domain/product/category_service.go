// internal/domain/product/category_service.go
package product

import (
	"context"
	"strings"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// CategoryWithProductCount represents category with product count
type CategoryWithProductCount struct {
	Slug         Category `json:"slug"`
	Name         string   `json:"name"`
	ProductCount int64    `json:"product_count"`
	InStockCount int64    `json:"in_stock_count"`
}

// DisplayName turns a slug like "living-room" into "Living Room"
func (c Category) DisplayName() string {
	words := strings.Split(string(c), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// GetCategories lists every category, including empty ones, in display order
func (s *Service) GetCategories(ctx context.Context) ([]CategoryWithProductCount, error) {
	var rows []struct {
		Category Category
		Total    int64
		InStock  int64
	}
	err := s.db.WithContext(ctx).Model(&Product{}).
		Select("category, COUNT(*) AS total, SUM(CASE WHEN stock > 0 THEN 1 ELSE 0 END) AS in_stock").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.Persistence(err, "count products per category")
	}

	counts := make(map[Category][2]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = [2]int64{r.Total, r.InStock}
	}

	result := make([]CategoryWithProductCount, 0, len(Categories))
	for _, c := range Categories {
		result = append(result, CategoryWithProductCount{
			Slug:         c,
			Name:         c.DisplayName(),
			ProductCount: counts[c][0],
			InStockCount: counts[c][1],
		})
	}
	return result, nil
}

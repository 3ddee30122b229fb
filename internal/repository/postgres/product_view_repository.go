package postgres

import (
	"context"
	"fmt"
	"time"

	"marketReco/domain"

	"gorm.io/gorm"
)

type ProductViewRepository struct {
	DB *gorm.DB
}

func NewProductViewRepository(db *gorm.DB) *ProductViewRepository {
	return &ProductViewRepository{
		DB: db,
	}
}

func (r *ProductViewRepository) FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.ProductView, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Where("viewed_at >= ? AND viewed_at <= ?", start, end)

	if len(userIDs) > 0 {
		q = q.Where("user_id IN ?", userIDs)
	}

	var views []domain.ProductView
	if err := q.Find(&views).Error; err != nil {
		return nil, fmt.Errorf("failed to query product_views: %w", err)
	}

	return views, nil
}

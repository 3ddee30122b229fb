package postgres

import (
	"context"
	"fmt"
	"time"

	"marketReco/domain"

	"gorm.io/gorm"
)

type OrdersRepository struct {
	DB *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		DB: db,
	}
}

// FindInWindow returns orders created inside [start, end], restricted to the
// given users when userIDs is non-empty. Items are preloaded.
func (r *OrdersRepository) FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Preload("Items").
		Where("created_at >= ? AND created_at <= ?", start, end)

	if len(userIDs) > 0 {
		q = q.Where("user_id IN ?", userIDs)
	}

	var orders []domain.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	return orders, nil
}

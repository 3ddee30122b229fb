package postgres

import (
	"context"
	"fmt"
	"time"

	"marketReco/domain"

	"gorm.io/gorm"
)

type BehaviorRepository struct {
	DB *gorm.DB
}

func NewBehaviorRepository(db *gorm.DB) *BehaviorRepository {
	return &BehaviorRepository{
		DB: db,
	}
}

// FindViewsInWindow returns product-view rows from the generic behavior log.
func (r *BehaviorRepository) FindViewsInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.UserBehavior, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Where("action = ?", domain.BehaviorActionViewProduct).
		Where("created_at >= ? AND created_at <= ?", start, end)

	if len(userIDs) > 0 {
		q = q.Where("user_id IN ?", userIDs)
	}

	var rows []domain.UserBehavior
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query user_behaviors: %w", err)
	}

	return rows, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"marketReco/domain"

	"gorm.io/gorm"
)

type FavoriteRepository struct {
	DB *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{
		DB: db,
	}
}

func (r *FavoriteRepository) FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", start, end)

	if len(userIDs) > 0 {
		q = q.Where("user_id IN ?", userIDs)
	}

	var favorites []domain.Favorite
	if err := q.Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}

	return favorites, nil
}

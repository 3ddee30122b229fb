package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketReco/domain"

	"gorm.io/gorm"
)

type RecommendationRepository struct {
	DB *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{DB: db}
}

func (r *RecommendationRepository) FindByUserAndStrategy(ctx context.Context, userID uint, strategy string) (*domain.RecommendationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var record domain.RecommendationRecord
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND strategy = ?", userID, strategy).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation_records: %w", err)
	}

	return &record, nil
}

func (r *RecommendationRepository) DeleteByID(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.RecommendationRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete recommendation record: %w", result.Error)
	}

	return nil
}

func (r *RecommendationRepository) Create(ctx context.Context, record *domain.RecommendationRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create recommendation record: %w", err)
	}

	return nil
}

// FindActiveByUser returns the non-expired record for a (user, strategy),
// with items decoded.
func (r *RecommendationRepository) FindActiveByUser(ctx context.Context, userID uint, strategy string) (*domain.RecommendationRecord, []domain.RankedRecommendation, error) {
	record, err := r.FindByUserAndStrategy(ctx, userID, strategy)
	if err != nil {
		return nil, nil, err
	}
	if record == nil || record.ExpiresAt.Before(time.Now()) {
		return nil, nil, nil
	}

	var items []domain.RankedRecommendation
	if len(record.ItemsJSON) > 0 {
		if err := json.Unmarshal(record.ItemsJSON, &items); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal recommendation items: %w", err)
		}
	}

	return record, items, nil
}

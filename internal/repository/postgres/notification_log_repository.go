package postgres

import (
	"context"
	"fmt"
	"time"

	"marketReco/domain"

	"gorm.io/gorm"
)

type NotificationLogRepository struct {
	DB *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{DB: db}
}

func (r *NotificationLogRepository) CountSince(ctx context.Context, userID uint, notifType string, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var count int64
	err := r.DB.WithContext(ctx).
		Model(&domain.NotificationLog{}).
		Where("user_id = ? AND notif_type = ? AND created_at >= ?", userID, notifType, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notification_logs: %w", err)
	}

	return int(count), nil
}

func (r *NotificationLogRepository) Create(ctx context.Context, log *domain.NotificationLog) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create notification log: %w", err)
	}

	return nil
}

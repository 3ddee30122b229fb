package recommend

import (
	"context"
	"time"

	"marketReco/domain"
)

// Repository interfaces owned by the pipeline, implemented under
// internal/repository. Event sources take an optional user-id restriction
// and a resolved time window.

type OrderEventRepository interface {
	FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.Order, error)
}

type BehaviorEventRepository interface {
	FindViewsInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.UserBehavior, error)
}

type ProductViewEventRepository interface {
	FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.ProductView, error)
}

type FavoriteEventRepository interface {
	FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.Favorite, error)
}

type CatalogRepository interface {
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
	FindInStock(ctx context.Context) ([]domain.Product, error)
}

type RecommendationRepository interface {
	FindByUserAndStrategy(ctx context.Context, userID uint, strategy string) (*domain.RecommendationRecord, error)
	DeleteByID(ctx context.Context, id uint64) error
	Create(ctx context.Context, record *domain.RecommendationRecord) error
}

type NotificationLogRepository interface {
	CountSince(ctx context.Context, userID uint, notifType string, since time.Time) (int, error)
	Create(ctx context.Context, log *domain.NotificationLog) error
}

type UserRepository interface {
	FindByIDs(ctx context.Context, ids []uint) ([]domain.User, error)
}

type EmailSender interface {
	SendEmail(toName, toEmail, subject, html string) error
}

type PushSender interface {
	SendPush(userID uint, title, body string, data map[string]any) (bool, error)
}

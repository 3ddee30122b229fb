package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ProductSnapshot is the denormalized product state carried inside a persisted
// recommendation item. Reads never need a catalog join.
type ProductSnapshot struct {
	ProductName  string  `json:"product_name"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	Brand        string  `json:"brand"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`
}

// RankedRecommendation is one entry of a persisted recommendation list.
// Score is min-max normalized to [0,1] within the user's own list.
type RankedRecommendation struct {
	ProductID uint64          `json:"product_id"`
	Score     float64         `json:"score"`
	RawScore  float64         `json:"raw_score"`
	Rationale string          `json:"rationale"`
	Strategy  string          `json:"strategy"`
	Product   ProductSnapshot `json:"product"`
	Available bool            `json:"available"`
}

// RecommendationRecord holds one generated list per (user, strategy).
// Regeneration deletes the previous row, it never accumulates history.
type RecommendationRecord struct {
	ID          uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint              `gorm:"column:user_id;not null;index:idx_reco_user_strategy" json:"user_id"`
	Strategy    string            `gorm:"column:strategy;not null;index:idx_reco_user_strategy" json:"strategy"`
	ItemsJSON   []byte            `gorm:"column:items;type:jsonb" json:"-"`
	Context     datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
	GeneratedAt time.Time         `gorm:"column:generated_at;not null" json:"generated_at"`
	ExpiresAt   time.Time         `gorm:"column:expires_at;not null" json:"expires_at"`
}

func (RecommendationRecord) TableName() string {
	return "recommendation_records"
}

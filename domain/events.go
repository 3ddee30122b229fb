package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Generic behavior log. View events carry action = "view_product" and a
// dwell_seconds entry inside context.
type UserBehavior struct {
	ID        uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint              `gorm:"column:user_id;not null;index" json:"user_id"`
	Action    string            `gorm:"column:action;not null" json:"action"`
	ProductID uint64            `gorm:"column:product_id" json:"product_id"`
	SessionID string            `gorm:"column:session_id" json:"session_id"`
	Context   datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (UserBehavior) TableName() string {
	return "user_behaviors"
}

const BehaviorActionViewProduct = "view_product"

// Dedicated product-view log, written by the storefront tracker.
type ProductView struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ProductID    uint64    `gorm:"column:product_id;not null" json:"product_id"`
	DwellSeconds float64   `gorm:"column:dwell_seconds;type:numeric" json:"dwell_seconds"`
	SessionID    string    `gorm:"column:session_id" json:"session_id"`
	ViewedAt     time.Time `gorm:"column:viewed_at;index" json:"viewed_at"`
}

func (ProductView) TableName() string {
	return "product_views"
}

type Favorite struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ProductID uint64    `gorm:"column:product_id;not null" json:"product_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}

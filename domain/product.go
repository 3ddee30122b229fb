package domain

import (
	"time"
)

// CREATE TABLE public.products (
//     id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     product_name    TEXT,
//     brand           TEXT,
//     categories      JSONB,
//     price           NUMERIC,
//     stock           INT,
//     rating          NUMERIC,
//     review_count    INT,
//     thumbnail_url   TEXT,
//     created_at      TIMESTAMPTZ DEFAULT NOW()
// );

type Product struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductName  string    `gorm:"column:product_name;type:text" json:"product_name"`
	Brand        string    `gorm:"column:brand;type:text" json:"brand"`
	Categories   []string  `gorm:"column:categories;serializer:json" json:"categories"`
	Price        float64   `gorm:"column:price;type:numeric" json:"price"`
	Stock        int       `gorm:"column:stock" json:"stock"`
	Rating       float64   `gorm:"column:rating;type:numeric" json:"rating"`
	ReviewCount  int       `gorm:"column:review_count" json:"review_count"`
	ThumbnailURL string    `gorm:"column:thumbnail_url;type:text" json:"thumbnail_url"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

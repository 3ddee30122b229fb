package domain

import "time"

// Order statuses that count as a real purchase signal.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusPaid              = "paid"
	PaymentStatusPartiallyRefunded = "partially_refunded"
	PaymentStatusRefunded          = "refunded"
)

type Order struct {
	ID            uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint        `gorm:"column:user_id;not null;index" json:"user_id"`
	OrderStatus   string      `gorm:"column:order_status;not null" json:"order_status"`
	PaymentStatus string      `gorm:"column:payment_status;not null" json:"payment_status"`
	Total         float64     `gorm:"column:total;type:numeric" json:"total"`
	Items         []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt     time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots category and brand at purchase time so downstream
// aggregation never needs a catalog join for historical orders.
type OrderItem struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint64  `gorm:"column:order_id;not null;index" json:"order_id"`
	ProductID uint64  `gorm:"column:product_id;not null" json:"product_id"`
	Quantity  int     `gorm:"column:quantity;not null" json:"quantity"`
	Price     float64 `gorm:"column:price;type:numeric" json:"price"`
	Category  string  `gorm:"column:category;type:text" json:"category"`
	Brand     string  `gorm:"column:brand;type:text" json:"brand"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

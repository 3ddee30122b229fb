package domain

import "time"

const NotificationTypeRecommendation = "recommendation"

// NotificationLog is the rate-limit marker written after a dispatch attempt.
// Channel outcomes are explicit columns, not a free-form metadata blob.
type NotificationLog struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	NotifType string    `gorm:"column:notif_type;not null" json:"notif_type"`
	EmailSent bool      `gorm:"column:email_sent" json:"email_sent"`
	PushSent  bool      `gorm:"column:push_sent" json:"push_sent"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}

package model

import "time"

// Notification type enum constants
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// Notification is a per-user message, optionally tied to a purchase request.
// Mutable only through the read flag.
type Notification struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	PurchaseRequestID *uint     `gorm:"index" json:"purchase_request_id"`
	Title             string    `gorm:"type:varchar(255);not null" json:"title"`
	Message           string    `gorm:"type:text;not null" json:"message"`
	Type              string    `gorm:"type:varchar(50);not null" json:"type"` // info, success, warning, error
	IsRead            bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

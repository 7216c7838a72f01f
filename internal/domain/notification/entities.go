package notification

import (
	"encoding/json"
	"time"

	"loan-tracker/internal/domain/loan"
)

type Notification struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	NotificationID string          `gorm:"size:32;uniqueIndex:ux_notifications_notification_id" json:"notification_id"`
	Recipient      string          `gorm:"size:64;index:idx_notifications_recipient" json:"recipient"`
	Kind           loan.EventKind  `gorm:"size:32" json:"kind"`
	Title          string          `gorm:"size:255" json:"title"`
	Message        string          `gorm:"type:text" json:"message"`
	LoanID         string          `gorm:"size:32;index" json:"loan_id"`
	Payload        json.RawMessage `gorm:"type:blob" json:"payload,omitempty"`
	Read           bool            `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

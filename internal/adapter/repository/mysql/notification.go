package mysql

import (
	"context"

	notificationDomain "loan-tracker/internal/domain/notification"

	"gorm.io/gorm"
)

type NotificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notificationDomain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]notificationDomain.Notification, error) {
	var out []notificationDomain.Notification
	q := r.db.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

func (r *NotificationRepository) MarkRead(ctx context.Context, recipient string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&notificationDomain.Notification{}).
		Where("recipient = ? AND notification_id IN ? AND is_read = ?", recipient, ids, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&notificationDomain.Notification{}).
		Where("recipient = ? AND is_read = ?", recipient, false).
		Count(&n).Error
	return n, err
}

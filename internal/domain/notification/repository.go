package notification

import "context"

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListByRecipient returns the newest notifications first.
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]Notification, error)
	// MarkRead only touches notifications owned by recipient and returns how many changed.
	MarkRead(ctx context.Context, recipient string, ids []string) (int64, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
}

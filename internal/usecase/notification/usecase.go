package notification

import (
	"context"
	"fmt"

	"loan-tracker/internal/domain/loan"
	domain "loan-tracker/internal/domain/notification"
)

// MaxInbox caps how many notifications one List call returns.
const MaxInbox = 50

type Usecase struct {
	repo domain.Repository
}

func NewUsecase(r domain.Repository) *Usecase { return &Usecase{repo: r} }

// List returns the caller's newest notifications.
func (u *Usecase) List(ctx context.Context, c loan.Caller, limit int) ([]domain.Notification, error) {
	if c.ID == "" {
		return nil, &loan.AuthorizationError{Op: "read notifications"}
	}
	if limit <= 0 || limit > MaxInbox {
		limit = MaxInbox
	}
	out, err := u.repo.ListByRecipient(ctx, c.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkRead flags ids as read; ids owned by someone else are ignored.
func (u *Usecase) MarkRead(ctx context.Context, c loan.Caller, ids []string) (int64, error) {
	if c.ID == "" {
		return 0, &loan.AuthorizationError{Op: "read notifications"}
	}
	if len(ids) == 0 {
		return 0, &loan.ValidationError{Field: "notification_ids", Message: "must not be empty"}
	}
	n, err := u.repo.MarkRead(ctx, c.ID, ids)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return n, nil
}

func (u *Usecase) UnreadCount(ctx context.Context, c loan.Caller) (int64, error) {
	if c.ID == "" {
		return 0, &loan.AuthorizationError{Op: "read notifications"}
	}
	n, err := u.repo.CountUnread(ctx, c.ID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// Package notify holds the delivery targets the notification dispatcher fans
// committed loan events out to.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/notification"
	usecase "loan-tracker/internal/usecase/notification"
	"loan-tracker/pkg/id"
)

// StoreSink writes each event into the recipient's inbox.
type StoreSink struct {
	repo notification.Repository
	now  func() time.Time
}

func NewStoreSink(repo notification.Repository) *StoreSink {
	return &StoreSink{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, ev loan.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	title, msg := usecase.Render(ev)
	created := ev.OccurredAt
	if created.IsZero() {
		created = s.now()
	}
	return s.repo.Create(ctx, &notification.Notification{
		NotificationID: id.NewID32(),
		Recipient:      ev.Recipient,
		Kind:           ev.Kind,
		Title:          title,
		Message:        msg,
		LoanID:         ev.LoanID,
		Payload:        payload,
		CreatedAt:      created,
	})
}

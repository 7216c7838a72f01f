package mysql

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	loanDomain "loan-tracker/internal/domain/loan"
	notificationDomain "loan-tracker/internal/domain/notification"
)

func TestNotificationRepository_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, rec := range []struct{ id, to string }{{"n1", "u1"}, {"n2", "u2"}, {"n3", "u1"}} {
		n := &notificationDomain.Notification{
			NotificationID: rec.id,
			Recipient:      rec.to,
			Kind:           loanDomain.EventPaymentRecorded,
			Title:          "Payment Received",
			Message:        "A payment was recorded",
			LoanID:         "L1",
			Payload:        json.RawMessage(`{"amount":"100"}`),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, n); err != nil {
			t.Fatalf("Create %s: %v", rec.id, err)
		}
	}

	got, err := repo.ListByRecipient(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].NotificationID != "n3" || got[1].NotificationID != "n1" {
		t.Fatalf("list order: %+v", got)
	}
	if string(got[0].Payload) != `{"amount":"100"}` || got[0].Read {
		t.Fatalf("payload/read: %+v", got[0])
	}

	limited, _ := repo.ListByRecipient(ctx, "u1", 1)
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d", len(limited))
	}

	changed, err := repo.MarkRead(ctx, "u1", []string{"n1", "n2"})
	if err != nil || changed != 1 {
		t.Fatalf("MarkRead: changed=%d err=%v", changed, err)
	}
	if changed, _ := repo.MarkRead(ctx, "u1", nil); changed != 0 {
		t.Fatalf("empty ids changed %d", changed)
	}

	if n, _ := repo.CountUnread(ctx, "u1"); n != 1 {
		t.Fatalf("u1 unread = %d", n)
	}
	if n, _ := repo.CountUnread(ctx, "u2"); n != 1 {
		t.Fatalf("u2 unread = %d", n)
	}
}

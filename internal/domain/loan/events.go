package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventLoanDecided     EventKind = "LoanDecided"
	EventPaymentRecorded EventKind = "PaymentRecorded"
	EventLoanCompleted   EventKind = "LoanCompleted"
)

// Event is derived by a committed transition and addressed to the loan's owner.
type Event struct {
	Kind         EventKind       `json:"kind"`
	Recipient    string          `json:"recipient"`
	LoanID       string          `json:"loan_id"`
	ContactEmail string          `json:"-"`
	Principal    decimal.Decimal `json:"principal"`
	Outcome      Status          `json:"outcome,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	// Amount is set only for repayment events; decisions carry null.
	Amount     decimal.NullDecimal `json:"amount"`
	Balance    decimal.Decimal     `json:"balance"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func newEvent(kind EventKind, l *Loan, at time.Time) Event {
	ev := Event{
		Kind:         kind,
		Recipient:    l.OwnerID,
		LoanID:       l.LoanID,
		ContactEmail: l.ContactEmail,
		Principal:    l.Principal,
		OccurredAt:   at,
	}
	if l.RemainingBalance.Valid {
		ev.Balance = l.RemainingBalance.Decimal
	}
	return ev
}

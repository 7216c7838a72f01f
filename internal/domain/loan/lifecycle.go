package loan

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxNotesLen = 2000

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// SubmitInput is what an applicant provides; OwnerID comes from the caller.
type SubmitInput struct {
	OwnerID           string
	FullName          string
	ContactEmail      string
	Principal         decimal.Decimal
	TenureMonths      int
	Purpose           string
	EmploymentAddress string
}

// New builds a Pending record or fails with a *ValidationError.
func New(in SubmitInput, now time.Time) (*Loan, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, invalid("owner_id", "is required")
	}
	if err := checkAmount("principal", in.Principal); err != nil {
		return nil, err
	}
	if in.Principal.LessThan(MinPrincipal) || in.Principal.GreaterThan(MaxPrincipal) {
		return nil, invalid("principal", fmt.Sprintf("must be between %s and %s", MinPrincipal, MaxPrincipal))
	}
	if in.TenureMonths < MinTenureMonths || in.TenureMonths > MaxTenureMonths {
		return nil, invalid("tenure_months", fmt.Sprintf("must be between %d and %d", MinTenureMonths, MaxTenureMonths))
	}
	for _, f := range []struct{ name, val string }{
		{"full_name", in.FullName},
		{"purpose", in.Purpose},
		{"employment_address", in.EmploymentAddress},
	} {
		if strings.TrimSpace(f.val) == "" {
			return nil, invalid(f.name, "is required")
		}
	}

	return &Loan{
		OwnerID:           in.OwnerID,
		FullName:          strings.TrimSpace(in.FullName),
		ContactEmail:      strings.TrimSpace(in.ContactEmail),
		Principal:         in.Principal,
		TenureMonths:      in.TenureMonths,
		Purpose:           strings.TrimSpace(in.Purpose),
		EmploymentAddress: strings.TrimSpace(in.EmploymentAddress),
		Status:            StatusPending,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}, nil
}

// CheckWithdraw reports whether c may remove the record.
func (l *Loan) CheckWithdraw(c Caller) error {
	if !c.Owns(l) {
		return &AuthorizationError{Op: "withdraw this loan"}
	}
	if l.Status != StatusPending {
		return &InvalidStateError{Op: "withdraw", Status: l.Status}
	}
	return nil
}

// Decide approves or rejects a Pending loan.
func (l *Loan) Decide(c Caller, action Action, notes string, now time.Time) (Event, error) {
	if !c.IsAdmin() {
		return Event{}, &AuthorizationError{Op: "decide loans"}
	}
	if l.Status != StatusPending {
		return Event{}, &InvalidStateError{Op: "decide", Status: l.Status}
	}
	if action != ActionApprove && action != ActionReject {
		return Event{}, invalid("action", "must be approve or reject")
	}
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return Event{}, invalid("notes", fmt.Sprintf("must be at most %d characters", maxNotesLen))
	}

	at := now.UTC()
	next := l.Clone()
	if action == ActionApprove {
		next.Status = StatusApproved
		next.RemainingBalance = decimal.NewNullDecimal(next.Principal)
	} else {
		next.Status = StatusRejected
	}
	next.DecisionNotes = notes
	next.DecidedBy = c.ID
	next.DecidedAt = &at
	next.UpdatedAt = at

	if err := next.CheckInvariants(); err != nil {
		return Event{}, err
	}
	*l = *next

	ev := newEvent(EventLoanDecided, l, at)
	ev.Outcome = l.Status
	ev.Notes = notes
	return ev, nil
}

// RecordRepayment appends a payment and completes the loan when the balance hits zero.
func (l *Loan) RecordRepayment(c Caller, amount decimal.Decimal, now time.Time) (Event, error) {
	if !c.IsAdmin() {
		return Event{}, &AuthorizationError{Op: "record repayments"}
	}
	if l.Status != StatusApproved {
		return Event{}, &InvalidStateError{Op: "repay", Status: l.Status}
	}
	if err := checkAmount("amount", amount); err != nil {
		return Event{}, err
	}
	balance := l.RemainingBalance.Decimal
	if amount.GreaterThan(balance) {
		return Event{}, invalid("amount", fmt.Sprintf("must not exceed remaining balance %s", balance.StringFixed(amountScale)))
	}

	at := now.UTC()
	next := l.Clone()
	next.Repayments = append(next.Repayments, Repayment{
		LoanRef:    l.ID,
		Seq:        len(l.Repayments) + 1,
		Amount:     amount,
		PaidAt:     at,
		RecordedBy: c.ID,
	})
	next.RemainingBalance = decimal.NewNullDecimal(balance.Sub(amount))
	next.LastPaymentAt = &at
	next.UpdatedAt = at

	kind := EventPaymentRecorded
	if next.RemainingBalance.Decimal.IsZero() {
		next.Status = StatusCompleted
		kind = EventLoanCompleted
	}
	if err := next.CheckInvariants(); err != nil {
		return Event{}, err
	}
	*l = *next

	ev := newEvent(kind, l, at)
	ev.Amount = decimal.NewNullDecimal(amount)
	return ev, nil
}

// CheckInvariants verifies the record against the ledger rules.
func (l *Loan) CheckInvariants() error {
	repaid := l.TotalRepaid()
	for i, r := range l.Repayments {
		if !r.Amount.IsPositive() {
			return fmt.Errorf("repayment %d has non-positive amount %s", i+1, r.Amount)
		}
	}
	if repaid.GreaterThan(l.Principal) {
		return fmt.Errorf("repayments %s exceed principal %s", repaid, l.Principal)
	}

	switch l.Status {
	case StatusPending, StatusRejected:
		if l.RemainingBalance.Valid || len(l.Repayments) > 0 {
			return fmt.Errorf("%s loan must have no balance and no repayments", l.Status)
		}
	case StatusApproved:
		if !l.RemainingBalance.Valid {
			return fmt.Errorf("approved loan has no balance")
		}
		b := l.RemainingBalance.Decimal
		if !b.IsPositive() || b.GreaterThan(l.Principal) {
			return fmt.Errorf("approved loan balance %s outside (0, %s]", b, l.Principal)
		}
	case StatusCompleted:
		if !l.RemainingBalance.Valid || !l.RemainingBalance.Decimal.IsZero() || len(l.Repayments) == 0 {
			return fmt.Errorf("completed loan must have zero balance and repayments")
		}
	default:
		return fmt.Errorf("unknown status %q", l.Status)
	}

	if l.RemainingBalance.Valid && !l.RemainingBalance.Decimal.Equal(l.Principal.Sub(repaid)) {
		return fmt.Errorf("balance %s != principal %s - repaid %s", l.RemainingBalance.Decimal, l.Principal, repaid)
	}
	return nil
}

func checkAmount(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return invalid(field, "must be greater than 0")
	}
	if !d.Equal(d.Round(amountScale)) {
		return invalid(field, "must have at most 2 decimal places")
	}
	return nil
}

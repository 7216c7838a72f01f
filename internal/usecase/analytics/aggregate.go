// Package analytics summarises the loan population for the admin dashboard.
// Everything here is derived from stored loans and holds no state of its own.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"loan-tracker/internal/domain/loan"
)

// WindowMonths is the number of calendar months a Snapshot covers, ending with now's month.
const WindowMonths = 6

const monthLayout = "2006-01"

type StatusDistribution struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
}

// Snapshot is the dashboard view. Every monthly slice is aligned with Months, oldest first.
type Snapshot struct {
	GeneratedAt             time.Time          `json:"generated_at"`
	Months                  []string           `json:"months"`
	MonthlyLoans            []int              `json:"monthly_loans"`
	MonthlyRepayments       []int              `json:"monthly_repayments"`
	MonthlyRepaymentAmounts []decimal.Decimal  `json:"monthly_repayment_amounts"`
	MonthlyOutstanding      []decimal.Decimal  `json:"monthly_outstanding"`
	StatusDistribution      StatusDistribution `json:"status_distribution"`
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Aggregate computes a Snapshot from the full population. It never mutates loans.
func Aggregate(loans []loan.Loan, now time.Time) Snapshot {
	first := monthStart(now).AddDate(0, -(WindowMonths - 1), 0)

	s := Snapshot{
		GeneratedAt:             now.UTC(),
		Months:                  make([]string, WindowMonths),
		MonthlyLoans:            make([]int, WindowMonths),
		MonthlyRepayments:       make([]int, WindowMonths),
		MonthlyRepaymentAmounts: make([]decimal.Decimal, WindowMonths),
		MonthlyOutstanding:      make([]decimal.Decimal, WindowMonths),
	}
	for i := 0; i < WindowMonths; i++ {
		s.Months[i] = first.AddDate(0, i, 0).Format(monthLayout)
		s.MonthlyRepaymentAmounts[i] = decimal.Zero
		s.MonthlyOutstanding[i] = decimal.Zero
	}

	// bucket returns the window index of t, or -1 outside the window.
	bucket := func(t time.Time) int {
		m := monthStart(t)
		idx := (m.Year()-first.Year())*12 + int(m.Month()) - int(first.Month())
		if idx < 0 || idx >= WindowMonths {
			return -1
		}
		return idx
	}

	for i := range loans {
		l := &loans[i]
		switch l.Status {
		case loan.StatusPending:
			s.StatusDistribution.Pending++
		case loan.StatusApproved:
			s.StatusDistribution.Approved++
		case loan.StatusRejected:
			s.StatusDistribution.Rejected++
		case loan.StatusCompleted:
			s.StatusDistribution.Completed++
		}

		if idx := bucket(l.CreatedAt); idx >= 0 {
			s.MonthlyLoans[idx]++
			if l.Status == loan.StatusApproved && l.RemainingBalance.Valid {
				s.MonthlyOutstanding[idx] = s.MonthlyOutstanding[idx].Add(l.RemainingBalance.Decimal)
			}
		}
		for _, r := range l.Repayments {
			if idx := bucket(r.PaidAt); idx >= 0 {
				s.MonthlyRepayments[idx]++
				s.MonthlyRepaymentAmounts[idx] = s.MonthlyRepaymentAmounts[idx].Add(r.Amount)
			}
		}
	}
	return s
}

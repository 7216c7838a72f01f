package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"loan-tracker/internal/domain/loan"
)

const recentLoans = 5

type RecentLoan struct {
	LoanID    string          `json:"loan_id"`
	FullName  string          `json:"full_name"`
	Principal decimal.Decimal `json:"principal"`
	Status    loan.Status     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type Stats struct {
	TotalLoans         int                `json:"total_loans"`
	StatusDistribution StatusDistribution `json:"status_distribution"`
	// TotalCashDisbursed sums the principal of every loan that was paid out,
	// including ones since repaid in full.
	TotalCashDisbursed decimal.Decimal `json:"total_cash_disbursed"`
	RecentLoans        []RecentLoan    `json:"recent_loans"`
}

func ComputeStats(loans []loan.Loan) Stats {
	st := Stats{TotalLoans: len(loans), TotalCashDisbursed: decimal.Zero, RecentLoans: []RecentLoan{}}
	for i := range loans {
		l := &loans[i]
		switch l.Status {
		case loan.StatusPending:
			st.StatusDistribution.Pending++
		case loan.StatusApproved:
			st.StatusDistribution.Approved++
			st.TotalCashDisbursed = st.TotalCashDisbursed.Add(l.Principal)
		case loan.StatusRejected:
			st.StatusDistribution.Rejected++
		case loan.StatusCompleted:
			st.StatusDistribution.Completed++
			st.TotalCashDisbursed = st.TotalCashDisbursed.Add(l.Principal)
		}
	}

	idx := make([]int, len(loans))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		la, lb := &loans[idx[a]], &loans[idx[b]]
		if !la.CreatedAt.Equal(lb.CreatedAt) {
			return la.CreatedAt.After(lb.CreatedAt)
		}
		return la.ID > lb.ID
	})
	for _, i := range idx {
		if len(st.RecentLoans) == recentLoans {
			break
		}
		l := &loans[i]
		st.RecentLoans = append(st.RecentLoans, RecentLoan{
			LoanID: l.LoanID, FullName: l.FullName, Principal: l.Principal, Status: l.Status, CreatedAt: l.CreatedAt,
		})
	}
	return st
}

package loan

import (
	"time"

	"github.com/shopspring/decimal"

	domain "loan-tracker/internal/domain/loan"
)

type SubmitInput struct {
	FullName          string          `json:"full_name"`
	ContactEmail      string          `json:"contact_email"`
	Principal         decimal.Decimal `json:"principal"`
	TenureMonths      int             `json:"tenure_months"`
	Purpose           string          `json:"purpose"`
	EmploymentAddress string          `json:"employment_address"`
}

type DecideInput struct {
	Action domain.Action `json:"action"`
	Notes  string        `json:"notes"`
}

// ListInput pages through loans. Status "" or "all" means every status.
type ListInput struct {
	Status   string
	Page     int
	PageSize int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type RepaymentDTO struct {
	Seq        int             `json:"seq"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAt     time.Time       `json:"paid_at"`
	RecordedBy string          `json:"recorded_by"`
}

type LoanDTO struct {
	LoanID            string           `json:"loan_id"`
	OwnerID           string           `json:"owner_id"`
	FullName          string           `json:"full_name"`
	Principal         decimal.Decimal  `json:"principal"`
	TenureMonths      int              `json:"tenure_months"`
	Purpose           string           `json:"purpose"`
	EmploymentAddress string           `json:"employment_address"`
	Status            string           `json:"status"`
	RemainingBalance  *decimal.Decimal `json:"remaining_balance"`
	Repayments        []RepaymentDTO   `json:"repayments"`
	DecisionNotes     string           `json:"decision_notes,omitempty"`
	DecidedBy         string           `json:"decided_by,omitempty"`
	DecidedAt         *time.Time       `json:"decided_at,omitempty"`
	LastPaymentAt     *time.Time       `json:"last_payment_at,omitempty"`
	Version           uint64           `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
}

type LoanPage struct {
	Loans       []LoanDTO `json:"loans"`
	Total       int64     `json:"total"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	PageSize    int       `json:"page_size"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	dto := &LoanDTO{
		LoanID:            l.LoanID,
		OwnerID:           l.OwnerID,
		FullName:          l.FullName,
		Principal:         l.Principal,
		TenureMonths:      l.TenureMonths,
		Purpose:           l.Purpose,
		EmploymentAddress: l.EmploymentAddress,
		Status:            string(l.Status),
		Repayments:        make([]RepaymentDTO, 0, len(l.Repayments)),
		DecisionNotes:     l.DecisionNotes,
		DecidedBy:         l.DecidedBy,
		DecidedAt:         l.DecidedAt,
		LastPaymentAt:     l.LastPaymentAt,
		Version:           l.Version,
		CreatedAt:         l.CreatedAt,
	}
	if l.RemainingBalance.Valid {
		b := l.RemainingBalance.Decimal
		dto.RemainingBalance = &b
	}
	for _, r := range l.Repayments {
		dto.Repayments = append(dto.Repayments, RepaymentDTO{
			Seq: r.Seq, Amount: r.Amount, PaidAt: r.PaidAt, RecordedBy: r.RecordedBy,
		})
	}
	return dto
}

package loan

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCompleted Status = "Completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition may be applied.
func (s Status) Terminal() bool { return s == StatusRejected || s == StatusCompleted }

// ParseStatus accepts the canonical spelling case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	for _, s := range Statuses {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, true
		}
	}
	return "", false
}

var (
	MinPrincipal = decimal.NewFromInt(1000)
	MaxPrincipal = decimal.NewFromInt(50000)
)

const (
	MinTenureMonths = 6
	MaxTenureMonths = 60

	// amounts are integral cents
	amountScale = 2
)

type Loan struct {
	ID                uint64              `gorm:"primaryKey;column:id" json:"-"`
	LoanID            string              `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	OwnerID           string              `gorm:"size:64;index:idx_loans_owner" json:"owner_id"`
	FullName          string              `gorm:"size:255" json:"full_name"`
	ContactEmail      string              `gorm:"size:255" json:"contact_email,omitempty"`
	Principal         decimal.Decimal     `gorm:"type:decimal(12,2)" json:"principal"`
	TenureMonths      int                 `gorm:"column:tenure_months" json:"tenure_months"`
	Purpose           string              `gorm:"type:text" json:"purpose"`
	EmploymentAddress string              `gorm:"type:text" json:"employment_address"`
	Status            Status              `gorm:"size:16;index:idx_loans_status;default:'Pending'" json:"status"`
	RemainingBalance  decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"remaining_balance"`
	Repayments        []Repayment         `gorm:"foreignKey:LoanRef;references:ID" json:"repayments"`
	DecisionNotes     string              `gorm:"type:text" json:"decision_notes,omitempty"`
	DecidedBy         string              `gorm:"size:64" json:"decided_by,omitempty"`
	DecidedAt         *time.Time          `json:"decided_at,omitempty"`
	LastPaymentAt     *time.Time          `json:"last_payment_at,omitempty"`
	Version           uint64              `gorm:"not null;default:0" json:"version"`
	CreatedAt         time.Time           `gorm:"index:idx_loans_created" json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Repayment is one accepted payment. Rows are append-only.
type Repayment struct {
	ID         uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanRef    uint64          `gorm:"column:loan_ref;not null;uniqueIndex:ux_repayments_loan_seq" json:"-"`
	Seq        int             `gorm:"column:seq;not null;uniqueIndex:ux_repayments_loan_seq" json:"seq"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidAt     time.Time       `gorm:"column:paid_at;index" json:"paid_at"`
	RecordedBy string          `gorm:"size:64" json:"recorded_by"`
}

func (Repayment) TableName() string { return "loan_repayments" }

// Clone returns a deep copy of the record and its repayment history.
func (l *Loan) Clone() *Loan {
	out := *l
	if l.Repayments != nil {
		out.Repayments = make([]Repayment, len(l.Repayments))
		copy(out.Repayments, l.Repayments)
	}
	if l.DecidedAt != nil {
		t := *l.DecidedAt
		out.DecidedAt = &t
	}
	if l.LastPaymentAt != nil {
		t := *l.LastPaymentAt
		out.LastPaymentAt = &t
	}
	return &out
}

// TotalRepaid sums every recorded repayment.
func (l *Loan) TotalRepaid() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range l.Repayments {
		sum = sum.Add(r.Amount)
	}
	return sum
}

package loan

import "context"

// ListFilter selects a page of loans. Zero Status means all statuses.
type ListFilter struct {
	Status  Status
	OwnerID string
	Offset  int
	Limit   int
}

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	// GetByLoanID returns ErrNotFound for unknown ids.
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the row for the rest of the transaction where the store supports it.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// Save persists l if its Version is still current, appends unsaved repayments
	// and bumps Version. A stale Version yields ErrConflict.
	Save(ctx context.Context, l *Loan) error
	// Delete removes l if its Version is still current.
	Delete(ctx context.Context, l *Loan) error
	// List returns the page newest first, plus the total matching count.
	List(ctx context.Context, f ListFilter) ([]Loan, int64, error)
	// All scans the full population, repayments included.
	All(ctx context.Context) ([]Loan, error)
}

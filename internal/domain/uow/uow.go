// Package uow declares the transaction boundary the loan use cases run in.
package uow

import (
	"context"

	"loan-tracker/internal/domain/loan"
)

// Repos are the repositories bound to the running transaction.
type Repos struct {
	Loans loan.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx loads loanID under a row lock and commits only if fn returns nil.
	// A missing loan is loan.ErrNotFound and fn is not called.
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}

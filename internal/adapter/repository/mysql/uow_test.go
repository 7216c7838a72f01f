package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	loanDomain "loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/uow"

	"github.com/shopspring/decimal"
)

// ----------------------------- Tests -----------------------------

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	l := makeLoan("u1", time.Now().UTC())
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if l.ID == 0 {
			t.Fatalf("loan auto ID not set")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx commit err: %v", err)
	}

	if _, err := loanRepo.GetByLoanID(ctx, l.LoanID); err != nil {
		t.Fatalf("loan not visible after commit: %v", err)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	boom := errors.New("boom")
	l := makeLoan("u1", time.Now().UTC())
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := loanRepo.GetByLoanID(ctx, l.LoanID); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("loan visible after rollback: %v", err)
	}
}

func TestGormUoW_WithinLoanTx_SaveCommits(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	l := makeLoan("u1", time.Now().UTC())
	if err := loanRepo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := guow.WithinLoanTx(ctx, l.LoanID, func(r uow.Repos, locked *loanDomain.Loan) error {
		if locked.ID != l.ID {
			t.Fatalf("locked loan mismatch: %d != %d", locked.ID, l.ID)
		}
		approve(locked)
		return r.Loans.Save(ctx, locked)
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}

	got, _ := loanRepo.GetByLoanID(ctx, l.LoanID)
	if got.Status != loanDomain.StatusApproved || got.Version != 1 {
		t.Fatalf("after commit: status=%s version=%d", got.Status, got.Version)
	}
}

func TestGormUoW_WithinLoanTx_RollbackKeepsRepaymentsOut(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	l := makeLoan("u1", time.Now().UTC())
	approve(l)
	if err := loanRepo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("notify failed")
	err := guow.WithinLoanTx(ctx, l.LoanID, func(r uow.Repos, locked *loanDomain.Loan) error {
		locked.Repayments = append(locked.Repayments, loanDomain.Repayment{
			Seq: 1, Amount: decimal.NewFromInt(100), PaidAt: time.Now().UTC(), RecordedBy: "admin",
		})
		locked.RemainingBalance = decimal.NewNullDecimal(decimal.NewFromInt(4900))
		if err := r.Loans.Save(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := loanRepo.GetByLoanID(ctx, l.LoanID)
	if len(got.Repayments) != 0 || got.Version != 0 || !got.RemainingBalance.Decimal.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("rolled back tx leaked: %+v", got)
	}
}

func TestGormUoW_WithinLoanTx_NotFound(t *testing.T) {
	db := openTestDB(t)
	guow := NewGormUoW(db)

	called := false
	err := guow.WithinLoanTx(context.Background(), "missing", func(uow.Repos, *loanDomain.Loan) error {
		called = true
		return nil
	})
	if !errors.Is(err, loanDomain.ErrNotFound) || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}

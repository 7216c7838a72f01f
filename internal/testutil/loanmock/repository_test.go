package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "loan-tracker/internal/domain/loan"
)

func TestRepo_WritesUseProvidedFuncs(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{LoanID: "LN-1"}
	wantErr := errors.New("boom")

	var calls []string
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Loan) error {
			calls = append(calls, "create")
			if gotCtx != ctx || got != l {
				t.Fatalf("Create arg mismatch")
			}
			return wantErr
		},
		SaveFn: func(_ context.Context, got *domain.Loan) error {
			calls = append(calls, "save")
			return wantErr
		},
		DeleteFn: func(_ context.Context, got *domain.Loan) error {
			calls = append(calls, "delete")
			return wantErr
		},
	}
	for _, fn := range []func(context.Context, *domain.Loan) error{m.Create, m.Save, m.Delete} {
		if err := fn(ctx, l); !errors.Is(err, wantErr) {
			t.Fatalf("want %v, got %v", wantErr, err)
		}
	}
	if len(calls) != 3 {
		t.Fatalf("calls = %v", calls)
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	for _, fn := range []func(context.Context, *domain.Loan) error{m.Create, m.Save, m.Delete} {
		if err := fn(ctx, l); err != nil {
			t.Fatalf("default write: want nil, got %v", err)
		}
	}
}

func TestRepo_ReadsUseProvidedFuncs(t *testing.T) {
	ctx := context.Background()
	want := &domain.Loan{LoanID: "LN-2"}

	m := &Repo{
		GetByLoanIDFn: func(_ context.Context, loanID string) (*domain.Loan, error) {
			if loanID != "LN-2" {
				t.Fatalf("GetByLoanID loanID mismatch: got %s", loanID)
			}
			return want, nil
		},
		GetByLoanIDForUpdateFn: func(_ context.Context, loanID string) (*domain.Loan, error) {
			return want, nil
		},
		ListFn: func(_ context.Context, f domain.ListFilter) ([]domain.Loan, int64, error) {
			if f.Status != domain.StatusPending || f.Limit != 5 {
				t.Fatalf("List filter mismatch: %+v", f)
			}
			return []domain.Loan{*want}, 1, nil
		},
		AllFn: func(context.Context) ([]domain.Loan, error) { return []domain.Loan{*want}, nil },
	}
	if got, err := m.GetByLoanID(ctx, "LN-2"); err != nil || got != want {
		t.Fatalf("GetByLoanID: got %+v, %v", got, err)
	}
	if got, err := m.GetByLoanIDForUpdate(ctx, "LN-2"); err != nil || got != want {
		t.Fatalf("GetByLoanIDForUpdate: got %+v, %v", got, err)
	}
	if got, n, err := m.List(ctx, domain.ListFilter{Status: domain.StatusPending, Limit: 5}); err != nil || n != 1 || len(got) != 1 {
		t.Fatalf("List: got %v %d %v", got, n, err)
	}
	if got, err := m.All(ctx); err != nil || len(got) != 1 {
		t.Fatalf("All: got %v %v", got, err)
	}
}

func TestRepo_ReadDefaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}
	if got, err := m.GetByLoanID(ctx, "x"); err != context.Canceled || got != nil {
		t.Fatalf("GetByLoanID default: got %+v, %v", got, err)
	}
	if got, err := m.GetByLoanIDForUpdate(ctx, "x"); err != context.Canceled || got != nil {
		t.Fatalf("GetByLoanIDForUpdate default: got %+v, %v", got, err)
	}
	if _, _, err := m.List(ctx, domain.ListFilter{}); err != context.Canceled {
		t.Fatalf("List default: %v", err)
	}
	if _, err := m.All(ctx); err != context.Canceled {
		t.Fatalf("All default: %v", err)
	}
}

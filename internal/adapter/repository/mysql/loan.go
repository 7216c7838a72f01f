package mysql

import (
	"context"
	"errors"
	"fmt"

	loanDomain "loan-tracker/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo loanDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func withRepayments(db *gorm.DB) *gorm.DB {
	return db.Preload("Repayments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loanDomain.ErrNotFound
	}
	return err
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	if len(l.Repayments) > 0 {
		return errors.New("new loans cannot carry repayments")
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := withRepayments(r.db.WithContext(ctx)).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := withRepayments(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&loanDomain.Loan{}).
			Where("id = ? AND version = ?", l.ID, l.Version).
			Updates(map[string]any{
				"status":            l.Status,
				"remaining_balance": l.RemainingBalance,
				"decision_notes":    l.DecisionNotes,
				"decided_by":        l.DecidedBy,
				"decided_at":        l.DecidedAt,
				"last_payment_at":   l.LastPaymentAt,
				"updated_at":        l.UpdatedAt,
				"version":           gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("update loan %s: %w", l.LoanID, res.Error)
		}
		if res.RowsAffected == 0 {
			return loanDomain.ErrConflict
		}
		for i := range l.Repayments {
			rp := &l.Repayments[i]
			if rp.ID != 0 {
				continue
			}
			rp.LoanRef = l.ID
			if err := tx.Create(rp).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return loanDomain.ErrConflict
				}
				return fmt.Errorf("append repayment %d: %w", rp.Seq, err)
			}
		}
		l.Version++
		return nil
	})
}

func (r *LoanRepository) Delete(ctx context.Context, l *loanDomain.Loan) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Delete(&loanDomain.Loan{})
	if res.Error != nil {
		return fmt.Errorf("delete loan %s: %w", l.LoanID, res.Error)
	}
	if res.RowsAffected == 0 {
		return loanDomain.ErrConflict
	}
	return nil
}

func (r *LoanRepository) List(ctx context.Context, f loanDomain.ListFilter) ([]loanDomain.Loan, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&loanDomain.Loan{})
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.OwnerID != "" {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		return q
	}
	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []loanDomain.Loan
	q := withRepayments(scoped()).Order("created_at DESC, id DESC").Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *LoanRepository) All(ctx context.Context) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	err := withRepayments(r.db.WithContext(ctx)).Order("id ASC").Find(&out).Error
	return out, err
}

package loan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/uow"
	"loan-tracker/pkg/id"
)

// Locker serialises transitions on a single loan, ahead of the store's own row lock.
type Locker interface {
	WithLock(ctx context.Context, loanID string, fn func(ctx context.Context) error) error
}

// Emitter receives events after their transition committed. It must not block.
type Emitter interface {
	Emit(ev domain.Event)
}

type Usecase struct {
	repo    domain.Repository
	uow     uow.UnitOfWork
	locker  Locker
	emitter Emitter
	now     func() time.Time
	log     logrus.FieldLogger
	tracer  trace.Tracer
}

type Option func(*Usecase)

func WithLocker(l Locker) Option   { return func(u *Usecase) { u.locker = l } }
func WithEmitter(e Emitter) Option { return func(u *Usecase) { u.emitter = e } }
func WithClock(now func() time.Time) Option {
	return func(u *Usecase) { u.now = now }
}
func WithLogger(log logrus.FieldLogger) Option { return func(u *Usecase) { u.log = log } }

// NewUsecase: pass the repo for reads and a UoW for transitions.
func NewUsecase(r domain.Repository, tx uow.UnitOfWork, opts ...Option) *Usecase {
	u := &Usecase{
		repo:    r,
		uow:     tx,
		locker:  noLock{},
		emitter: discard{},
		now:     func() time.Time { return time.Now().UTC() },
		log:     logrus.StandardLogger(),
		tracer:  otel.Tracer("loan-tracker/usecase/loan"),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

type noLock struct{}

func (noLock) WithLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

type discard struct{}

func (discard) Emit(domain.Event) {}

func (u *Usecase) startSpan(ctx context.Context, op string, c domain.Caller, loanID string) (context.Context, trace.Span) {
	return u.tracer.Start(ctx, "loan."+op, trace.WithAttributes(
		attribute.String("caller.id", c.ID),
		attribute.String("caller.role", string(c.Role)),
		attribute.String("loan.id", loanID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (u *Usecase) Submit(ctx context.Context, c domain.Caller, in SubmitInput) (dto *LoanDTO, err error) {
	ctx, span := u.startSpan(ctx, "Submit", c, "")
	defer func() { endSpan(span, err) }()

	l, err := domain.New(domain.SubmitInput{
		OwnerID:           c.ID,
		FullName:          in.FullName,
		ContactEmail:      in.ContactEmail,
		Principal:         in.Principal,
		TenureMonths:      in.TenureMonths,
		Purpose:           in.Purpose,
		EmploymentAddress: in.EmploymentAddress,
	}, u.now())
	if err != nil {
		return nil, err
	}
	l.LoanID = id.NewID32()

	if err := u.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}
	u.log.WithFields(logrus.Fields{"loan_id": l.LoanID, "owner_id": l.OwnerID, "principal": l.Principal.String()}).
		Info("loan submitted")
	return toDTO(l), nil
}

func (u *Usecase) Withdraw(ctx context.Context, c domain.Caller, loanID string) (err error) {
	ctx, span := u.startSpan(ctx, "Withdraw", c, loanID)
	defer func() { endSpan(span, err) }()

	err = u.locker.WithLock(ctx, loanID, func(ctx context.Context) error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			if err := l.CheckWithdraw(c); err != nil {
				return err
			}
			return r.Loans.Delete(ctx, l)
		})
	})
	if err != nil {
		return err
	}
	u.log.WithFields(logrus.Fields{"loan_id": loanID, "owner_id": c.ID}).Info("loan withdrawn")
	return nil
}

func (u *Usecase) Decide(ctx context.Context, c domain.Caller, loanID string, in DecideInput) (dto *LoanDTO, err error) {
	ctx, span := u.startSpan(ctx, "Decide", c, loanID)
	defer func() { endSpan(span, err) }()

	action := domain.Action(strings.ToLower(strings.TrimSpace(string(in.Action))))
	return u.transition(ctx, loanID, func(l *domain.Loan) (domain.Event, error) {
		return l.Decide(c, action, in.Notes, u.now())
	})
}

func (u *Usecase) RecordRepayment(ctx context.Context, c domain.Caller, loanID string, amount decimal.Decimal) (dto *LoanDTO, err error) {
	ctx, span := u.startSpan(ctx, "RecordRepayment", c, loanID)
	defer func() { endSpan(span, err) }()

	return u.transition(ctx, loanID, func(l *domain.Loan) (domain.Event, error) {
		return l.RecordRepayment(c, amount, u.now())
	})
}

// transition applies apply to the locked record, saves it, and emits the derived
// event only after the transaction committed.
func (u *Usecase) transition(ctx context.Context, loanID string, apply func(l *domain.Loan) (domain.Event, error)) (*LoanDTO, error) {
	var (
		ev  domain.Event
		out *domain.Loan
	)
	err := u.locker.WithLock(ctx, loanID, func(ctx context.Context) error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			var err error
			if ev, err = apply(l); err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			out = l
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	u.log.WithFields(logrus.Fields{
		"loan_id": out.LoanID,
		"event":   ev.Kind,
		"status":  out.Status,
		"balance": ev.Balance.String(),
	}).Info("loan transition committed")
	u.emitter.Emit(ev)
	return toDTO(out), nil
}

// Get returns a loan to its owner or to an administrator.
func (u *Usecase) Get(ctx context.Context, c domain.Caller, loanID string) (*LoanDTO, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !c.CanView(l) {
		return nil, &domain.AuthorizationError{Op: "view this loan"}
	}
	return toDTO(l), nil
}

// ListOwn returns every loan the caller applied for, newest first.
func (u *Usecase) ListOwn(ctx context.Context, c domain.Caller) ([]LoanDTO, error) {
	if c.ID == "" {
		return nil, &domain.AuthorizationError{Op: "list loans"}
	}
	loans, _, err := u.repo.List(ctx, domain.ListFilter{OwnerID: c.ID})
	if err != nil {
		return nil, err
	}
	out := make([]LoanDTO, 0, len(loans))
	for i := range loans {
		out = append(out, *toDTO(&loans[i]))
	}
	return out, nil
}

// List pages through every loan; administrators only.
func (u *Usecase) List(ctx context.Context, c domain.Caller, in ListInput) (*LoanPage, error) {
	if !c.IsAdmin() {
		return nil, &domain.AuthorizationError{Op: "list all loans"}
	}
	f := domain.ListFilter{}
	if s := strings.TrimSpace(in.Status); s != "" && !strings.EqualFold(s, "all") {
		st, ok := domain.ParseStatus(s)
		if !ok {
			return nil, &domain.ValidationError{Field: "status", Message: "must be one of Pending, Approved, Rejected, Completed or all"}
		}
		f.Status = st
	}
	page, size := in.Page, in.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		return nil, &domain.ValidationError{Field: "limit", Message: fmt.Sprintf("must be at most %d", maxPageSize)}
	}
	if page > math.MaxInt/size {
		return nil, &domain.ValidationError{Field: "page", Message: "is out of range"}
	}
	f.Offset, f.Limit = (page-1)*size, size

	loans, total, err := u.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &LoanPage{
		Loans:       make([]LoanDTO, 0, len(loans)),
		Total:       total,
		TotalPages:  int((total + int64(size) - 1) / int64(size)),
		CurrentPage: page,
		PageSize:    size,
	}
	for i := range loans {
		out.Loans = append(out.Loans, *toDTO(&loans[i]))
	}
	return out, nil
}

// ErrRetriesExhausted is returned by WithRetry after the last conflict.
var ErrRetriesExhausted = errors.New("retries exhausted")

// WithRetry re-runs op while it fails with a retryable conflict. Each attempt
// re-reads state, so it is only safe for operations that re-validate.
func WithRetry[T any](ctx context.Context, attempts int, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	for i := 0; i < attempts; i++ {
		var v T
		if v, err = op(ctx); err == nil || !domain.IsRetryable(err) {
			return v, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
}

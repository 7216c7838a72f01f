// Package memory provides in-process implementations of the loan and
// notification stores, for tests and single-node development runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/notification"
	"loan-tracker/internal/domain/uow"
)

type Store struct {
	mu     sync.RWMutex
	loans  map[string]*loan.Loan
	nextID uint64
	nextRp uint64

	// per-loan mutexes stand in for SELECT ... FOR UPDATE
	rowLocks map[string]*sync.Mutex

	notes  []notification.Notification
	nextNt uint64
}

var (
	_ loan.Repository         = (*Store)(nil)
	_ notification.Repository = (*Notifications)(nil)
	_ uow.UnitOfWork          = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		loans:    make(map[string]*loan.Loan),
		rowLocks: make(map[string]*sync.Mutex),
	}
}

// Notifications exposes the notification half of the store.
func (s *Store) Notifications() *Notifications { return &Notifications{s: s} }

// ---- loan.Repository ----

func (s *Store) Create(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[l.LoanID]; ok {
		return loan.ErrConflict
	}
	s.nextID++
	l.ID = s.nextID
	s.loans[l.LoanID] = l.Clone()
	return nil
}

func (s *Store) GetByLoanID(_ context.Context, loanID string) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.loans[loanID]
	if !ok {
		return nil, loan.ErrNotFound
	}
	return l.Clone(), nil
}

// GetByLoanIDForUpdate does not lock by itself; WithinLoanTx holds the row lock.
func (s *Store) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return s.GetByLoanID(ctx, loanID)
}

func (s *Store) Save(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.loans[l.LoanID]
	if !ok {
		return loan.ErrNotFound
	}
	if cur.Version != l.Version {
		return loan.ErrConflict
	}
	for i := range l.Repayments {
		if l.Repayments[i].ID == 0 {
			s.nextRp++
			l.Repayments[i].ID = s.nextRp
			l.Repayments[i].LoanRef = l.ID
		}
	}
	l.Version++
	s.loans[l.LoanID] = l.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.loans[l.LoanID]
	if !ok {
		return loan.ErrNotFound
	}
	if cur.Version != l.Version {
		return loan.ErrConflict
	}
	delete(s.loans, l.LoanID)
	delete(s.rowLocks, l.LoanID)
	return nil
}

func (s *Store) List(_ context.Context, f loan.ListFilter) ([]loan.Loan, int64, error) {
	s.mu.RLock()
	matched := make([]loan.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.OwnerID != "" && l.OwnerID != f.OwnerID {
			continue
		}
		matched = append(matched, *l.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Offset >= len(matched) {
		return []loan.Loan{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *Store) All(_ context.Context) ([]loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]loan.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		out = append(out, *l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- uow.UnitOfWork ----

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return fn(uow.Repos{Loans: s})
}

func (s *Store) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	mu, ok := s.rowLock(loanID)
	if !ok {
		return loan.ErrNotFound
	}
	mu.Lock()
	defer mu.Unlock()

	l, err := s.GetByLoanIDForUpdate(ctx, loanID)
	if err != nil {
		return err
	}
	return fn(uow.Repos{Loans: s}, l)
}

// rowLock hands out the mutex of an existing loan; unknown ids get none.
func (s *Store) rowLock(loanID string) (*sync.Mutex, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[loanID]; !ok {
		return nil, false
	}
	mu, ok := s.rowLocks[loanID]
	if !ok {
		mu = &sync.Mutex{}
		s.rowLocks[loanID] = mu
	}
	return mu, true
}

// ---- notification.Repository ----

type Notifications struct{ s *Store }

func (n *Notifications) Create(_ context.Context, nt *notification.Notification) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.s.nextNt++
	nt.ID = n.s.nextNt
	n.s.notes = append(n.s.notes, *nt)
	return nil
}

func (n *Notifications) ListByRecipient(_ context.Context, recipient string, limit int) ([]notification.Notification, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	out := []notification.Notification{}
	// newest first: later inserts have higher ids
	for i := len(n.s.notes) - 1; i >= 0; i-- {
		if n.s.notes[i].Recipient != recipient {
			continue
		}
		out = append(out, n.s.notes[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (n *Notifications) MarkRead(_ context.Context, recipient string, ids []string) (int64, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	var changed int64
	for i := range n.s.notes {
		nt := &n.s.notes[i]
		if nt.Recipient == recipient && want[nt.NotificationID] && !nt.Read {
			nt.Read = true
			changed++
		}
	}
	return changed, nil
}

func (n *Notifications) CountUnread(_ context.Context, recipient string) (int64, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	var c int64
	for _, nt := range n.s.notes {
		if nt.Recipient == recipient && !nt.Read {
			c++
		}
	}
	return c, nil
}

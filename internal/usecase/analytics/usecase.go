package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/infrastructure/cache"
	"loan-tracker/internal/infrastructure/logging"
)

// SnapshotKey holds the most recent refreshed Snapshot in Redis.
const SnapshotKey = "analytics:snapshot:latest"

// Source is the full-population scan analytics reads from.
type Source interface {
	All(ctx context.Context) ([]loan.Loan, error)
}

type Usecase struct {
	src Source
	rdb *redis.Client
	now func() time.Time
	log logrus.FieldLogger
}

// NewUsecase builds the analytics reader. rdb may be nil, in which case
// Latest always recomputes.
func NewUsecase(src Source, rdb *redis.Client, log logrus.FieldLogger) *Usecase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Usecase{src: src, rdb: rdb, now: func() time.Time { return time.Now().UTC() }, log: log}
}

func (u *Usecase) load(ctx context.Context) ([]loan.Loan, error) {
	loans, err := u.src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan loans: %w", err)
	}
	return loans, nil
}

// Snapshot aggregates the population as of now; a zero now means the current time.
func (u *Usecase) Snapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	if now.IsZero() {
		now = u.now()
	}
	loans, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	s := Aggregate(loans, now)
	return &s, nil
}

func (u *Usecase) Stats(ctx context.Context) (*Stats, error) {
	loans, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	st := ComputeStats(loans)
	return &st, nil
}

// Latest returns the cached Snapshot, computing and caching one when absent.
func (u *Usecase) Latest(ctx context.Context) (*Snapshot, error) {
	if u.rdb != nil {
		var s Snapshot
		found, err := cache.GetJSON(ctx, u.rdb, SnapshotKey, &s)
		if err != nil {
			logging.LogError(u.log, "analytics", "Latest", "read cached snapshot", nil, err)
		} else if found {
			return &s, nil
		}
	}
	return u.Refresh(ctx)
}

// Refresh recomputes the Snapshot and stores it for Latest.
func (u *Usecase) Refresh(ctx context.Context) (*Snapshot, error) {
	s, err := u.Snapshot(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	if u.rdb != nil {
		if err := cache.SetJSON(ctx, u.rdb, SnapshotKey, s, 0); err != nil {
			logging.LogError(u.log, "analytics", "Refresh", "store snapshot", nil, err)
		}
	}
	return s, nil
}

func (u *Usecase) Report(ctx context.Context, now time.Time) ([]byte, error) {
	s, err := u.Snapshot(ctx, now)
	if err != nil {
		return nil, err
	}
	return RenderReport(*s)
}

// Refresher runs Refresh on a cron schedule.
type Refresher struct {
	uc   *Usecase
	cron *cron.Cron
	log  logrus.FieldLogger
}

// NewRefresher schedules Refresh with spec, e.g. "@every 5m" or a five-field expression.
func NewRefresher(uc *Usecase, spec string, log logrus.FieldLogger) (*Refresher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Refresher{uc: uc, cron: cron.New(cron.WithLocation(time.UTC)), log: log}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("analytics schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s, err := r.uc.Refresh(ctx)
	if err != nil {
		logging.LogError(r.log, "analytics", "Refresher.run", "refresh snapshot", nil, err)
		return
	}
	r.log.WithField("months", s.Months).Debug("analytics snapshot refreshed")
}

func (r *Refresher) Start() { r.cron.Start() }

// Stop waits for a running refresh to finish.
func (r *Refresher) Stop() { <-r.cron.Stop().Done() }

package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/infrastructure/logging"
)

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev loan.Event) error
}

// ErrSkipped lets a sink report that an event does not apply to it.
var ErrSkipped = errors.New("sink skipped event")

type DispatcherConfig struct {
	Workers        int
	QueueSize      int
	DeliverTimeout time.Duration
}

// Dispatcher fans committed events out to sinks on background workers.
// Emit never blocks: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	sinks   []Sink
	queue   chan loan.Event
	log     logrus.FieldLogger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, log logrus.FieldLogger, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Dispatcher{
		sinks:   sinks,
		queue:   make(chan loan.Event, cfg.QueueSize),
		log:     log,
		timeout: cfg.DeliverTimeout,
	}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Emit(ev loan.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.WithFields(logrus.Fields{"loan_id": ev.LoanID, "kind": ev.Kind}).Warn("notification dropped: dispatcher closed")
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.WithFields(logrus.Fields{"loan_id": ev.LoanID, "kind": ev.Kind}).Warn("notification dropped: queue full")
	}
}

// Close stops accepting events and waits until queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev loan.Event) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := s.Deliver(ctx, ev)
		cancel()
		switch {
		case err == nil:
			d.log.WithFields(logrus.Fields{"sink": s.Name(), "loan_id": ev.LoanID, "kind": ev.Kind}).Debug("notification delivered")
		case errors.Is(err, ErrSkipped):
		default:
			logging.LogError(d.log, "notification", "Dispatcher.deliver", s.Name(),
				logrus.Fields{"loan_id": ev.LoanID, "kind": ev.Kind, "recipient": ev.Recipient}, err)
		}
	}
}

package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/trackship/pkg/log"
)

// Scheduler calls one function periodically, or earlier when triggered.
//
// The function runs synchronously on the goroutine that called Run, so two
// calls from one Scheduler never overlap. Errors and panics from the
// function are logged and the schedule continues.
type Scheduler struct {
	name   string
	fn     func(context.Context) error
	logger log.Logger
	period atomic.Int64

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a Scheduler that runs fn every period.
func NewScheduler(name string, period time.Duration, fn func(context.Context) error, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Scheduler{
		name:   name,
		fn:     fn,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	s.period.Store(int64(period))
	return s
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string {
	return s.name
}

// Period returns the current period.
func (s *Scheduler) Period() time.Duration {
	return time.Duration(s.period.Load())
}

// SetPeriod changes the period. It takes effect from the next wait.
func (s *Scheduler) SetPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	s.period.Store(int64(d))
}

// Trigger wakes a waiting Run early. Triggers that arrive while fn is
// running coalesce into one extra run. It never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop makes Run return as soon as the current call of fn, if any, ends.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Run waits and calls fn until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Debug("scheduler started",
		log.String("scheduler", s.name),
		log.Duration("period", s.Period()),
	)
	defer s.logger.Debug("scheduler stopped", log.String("scheduler", s.name))

	timer := time.NewTimer(s.Period())
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		// Stop wins over a wake that raced with it.
		select {
		case <-s.stop:
			return
		default:
		}

		s.runOnce(ctx)
		timer.Reset(s.Period())
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	var err error
	recovered := panics.Try(func() {
		err = s.fn(ctx)
	})
	if recovered != nil {
		s.logger.Error("scheduled call panicked",
			log.String("scheduler", s.name),
			log.Err(recovered.AsError()),
		)
		return
	}
	if err != nil {
		s.logger.Warn("scheduled call failed",
			log.String("scheduler", s.name),
			log.Err(err),
		)
	}
}

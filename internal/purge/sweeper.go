package purge

import (
	"context"
	"time"

	"github.com/amirk1998/secret-notes/internal/logging"
)

// ExpiredDeleter is the part of the note store the sweeper needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// Sweeper periodically deletes notes past their expiry so unopened notes do
// not linger until someone requests them.
type Sweeper struct {
	store     ExpiredDeleter
	scheduler *Scheduler
	log       logging.Logger
	now       func() time.Time
	onSwept   func(ctx context.Context, ids []string)
}

// NewSweeper creates a sweeper. scheduler may be nil; when set, timers for
// swept ids are cancelled.
func NewSweeper(store ExpiredDeleter, scheduler *Scheduler, log logging.Logger) *Sweeper {
	if log == nil {
		log = logging.Nop{}
	}
	return &Sweeper{
		store:     store,
		scheduler: scheduler,
		log:       log,
		now:       time.Now,
	}
}

// OnSwept registers a hook called with the ids removed by each sweep.
func (s *Sweeper) OnSwept(fn func(ctx context.Context, ids []string)) {
	s.onSwept = fn
}

// WithClock replaces the time source.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep runs one pass and returns the removed ids.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	ids, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		for _, id := range ids {
			s.scheduler.Cancel(id)
		}
	}

	if len(ids) > 0 {
		s.log.Info(ctx, "expired notes swept", "count", len(ids))
		if s.onSwept != nil {
			s.onSwept(ctx, ids)
		}
	}

	return ids, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info(ctx, "expiry sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info(context.Background(), "expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Warn(ctx, "expiry sweep failed", "error", err)
			}
		}
	}
}

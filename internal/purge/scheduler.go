// Package purge removes read notes after a short delay and sweeps expired
// notes in the background.
package purge

import (
	"context"
	"sync"
	"time"

	"github.com/amirk1998/secret-notes/internal/logging"
)

const defaultDeleteTimeout = 5 * time.Second

// Deleter is the part of the note store the scheduler needs.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

type pending struct {
	timer *time.Timer
}

// Scheduler runs one deferred delete per note id. Deletes are best effort:
// a failure is logged and dropped, the expiry path removes the note later.
type Scheduler struct {
	store    Deleter
	log      logging.Logger
	timeout  time.Duration
	onPurged func(ctx context.Context, id string)

	mu      sync.Mutex
	timers  map[string]*pending
	stopped bool
}

// NewScheduler creates a scheduler. A non-positive timeout bounds each delete to 5s.
func NewScheduler(store Deleter, log logging.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = defaultDeleteTimeout
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Scheduler{
		store:   store,
		log:     log,
		timeout: timeout,
		timers:  make(map[string]*pending),
	}
}

// OnPurged registers a hook called after each successful delete.
func (s *Scheduler) OnPurged(fn func(ctx context.Context, id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPurged = fn
}

// Schedule arms a delete of id after delay, replacing any pending one for the same id.
func (s *Scheduler) Schedule(id string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if old, ok := s.timers[id]; ok {
		old.timer.Stop()
	}

	p := &pending{}
	p.timer = time.AfterFunc(delay, func() { s.fire(id, p) })
	s.timers[id] = p
}

func (s *Scheduler) fire(id string, p *pending) {
	s.mu.Lock()
	if s.timers[id] != p {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	hook := s.onPurged
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Warn(ctx, "scheduled purge failed", "note_id", id, "error", err)
		return
	}

	s.log.Debug(ctx, "note purged", "note_id", id)
	if hook != nil {
		hook(ctx, id)
	}
}

// Cancel drops the pending delete for id and reports whether one existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.timers[id]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.timers, id)
	return true
}

// Pending returns the number of armed deletes.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending delete. Later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, id)
	}
	s.stopped = true
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secret-notes/internal/audit"
	"github.com/amirk1998/secret-notes/internal/models"
	"github.com/amirk1998/secret-notes/internal/security"
	apperrors "github.com/amirk1998/secret-notes/pkg/errors"
)

type memStore struct {
	mu    sync.Mutex
	notes map[string]*models.Note
	calls map[string]int

	getErr    error
	claimErr  error
	createErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{notes: map[string]*models.Note{}, calls: map[string]int{}}
}

func (m *memStore) Create(_ context.Context, ciphertext string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create"]++
	if m.createErr != nil {
		return "", apperrors.Unavailable("create note", m.createErr)
	}
	id := uuid.NewString()
	m.notes[id] = &models.Note{ID: id, Ciphertext: ciphertext, CreatedAt: time.Now().UTC(), ExpiresAt: expiresAt}
	return id, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++
	if m.getErr != nil {
		return nil, apperrors.Unavailable("get note", m.getErr)
	}
	n, ok := m.notes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (m *memStore) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notes[id]; ok {
		n.Read = true
	}
	return nil
}

func (m *memStore) ClaimUnread(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["claim"]++
	if m.claimErr != nil {
		return false, apperrors.Unavailable("claim note", m.claimErr)
	}
	n, ok := m.notes[id]
	if !ok || n.Read {
		return false, nil
	}
	n.Read = true
	return true, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	if m.deleteErr != nil {
		return apperrors.Unavailable("delete note", m.deleteErr)
	}
	delete(m.notes, id)
	return nil
}

func (m *memStore) DeleteExpired(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, n := range m.notes {
		if n.IsExpired(now) {
			ids = append(ids, id)
			delete(m.notes, id)
		}
	}
	return ids, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.notes[id]
	return ok
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notes)
}

func (m *memStore) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) ciphertext(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notes[id].Ciphertext
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakePurger struct {
	mu        sync.Mutex
	scheduled map[string]time.Duration
	cancelled []string
}

func newFakePurger() *fakePurger {
	return &fakePurger{scheduled: map[string]time.Duration{}}
}

func (p *fakePurger) Schedule(id string, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduled[id] = delay
}

func (p *fakePurger) Cancel(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, id)
	_, ok := p.scheduled[id]
	delete(p.scheduled, id)
	return ok
}

func (p *fakePurger) delay(id string) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.scheduled[id]
	return d, ok
}

type countingCipher struct {
	Cipher
	mu       sync.Mutex
	encrypts int
}

func (c *countingCipher) Encrypt(plaintext, password string) (string, error) {
	c.mu.Lock()
	c.encrypts++
	c.mu.Unlock()
	return c.Cipher.Encrypt(plaintext, password)
}

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Log(e *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type harness struct {
	svc    *NoteService
	store  *memStore
	clock  *fakeClock
	purger *fakePurger
	cipher *countingCipher
	audit  *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	nc, err := security.NewNoteCipherWithParams(security.KDFParams{Time: 1, Memory: 64, Threads: 1})
	require.NoError(t, err)

	h := &harness{
		store:  newMemStore(),
		clock:  newFakeClock(),
		purger: newFakePurger(),
		cipher: &countingCipher{Cipher: nc},
		audit:  &recorder{},
	}

	svc, err := NewNoteService(h.store, h.cipher, Options{
		BaseURL:    "https://notes.example.com/app/",
		Retention:  7 * 24 * time.Hour,
		PurgeDelay: time.Minute,
	})
	require.NoError(t, err)

	h.svc = svc.WithClock(h.clock.Now).WithPurger(h.purger).WithAudit(h.audit)
	return h
}

// Package service implements the note lifecycle: submit, load, unlock once,
// expire and purge.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirk1998/secret-notes/internal/audit"
	"github.com/amirk1998/secret-notes/internal/link"
	"github.com/amirk1998/secret-notes/internal/logging"
	"github.com/amirk1998/secret-notes/internal/models"
	"github.com/amirk1998/secret-notes/internal/ratelimit"
	"github.com/amirk1998/secret-notes/internal/repository"
	"github.com/amirk1998/secret-notes/pkg/errors"
	"github.com/amirk1998/secret-notes/pkg/validator"
)

const (
	DefaultRetention  = 7 * 24 * time.Hour
	DefaultPurgeDelay = 60 * time.Second
)

// Cipher seals note text under the note password.
type Cipher interface {
	Encrypt(plaintext, password string) (string, error)
	Decrypt(ciphertext, password string) (string, bool)
}

// Purger deletes a read note after a delay.
type Purger interface {
	Schedule(id string, delay time.Duration)
	Cancel(id string) bool
}

type Options struct {
	BaseURL    string
	Retention  time.Duration
	PurgeDelay time.Duration
}

type NoteService struct {
	store         repository.NoteStore
	cipher        Cipher
	validator     *validator.Validator
	createLimiter *ratelimit.RateLimiter
	unlockLimiter *ratelimit.RateLimiter
	auditLogger   audit.Recorder
	purger        Purger
	log           logging.Logger

	baseURL    string
	retention  time.Duration
	purgeDelay time.Duration
	now        func() time.Time
}

// NewNoteService creates a new note service. Zero retention and a negative
// purge delay fall back to the defaults.
func NewNoteService(store repository.NoteStore, cipher Cipher, opts Options) (*NoteService, error) {
	if _, err := link.Build(opts.BaseURL, "probe"); err != nil {
		return nil, err
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.PurgeDelay < 0 {
		opts.PurgeDelay = DefaultPurgeDelay
	}

	return &NoteService{
		store:       store,
		cipher:      cipher,
		validator:   validator.New(),
		auditLogger: nopRecorder{},
		log:         logging.Nop{},
		baseURL:     opts.BaseURL,
		retention:   opts.Retention,
		purgeDelay:  opts.PurgeDelay,
		now:         time.Now,
	}, nil
}

// WithRateLimits sets the per-client create limiter and the per-note unlock
// limiter. Either may be nil.
func (s *NoteService) WithRateLimits(create, unlock *ratelimit.RateLimiter) *NoteService {
	s.createLimiter = create
	s.unlockLimiter = unlock
	return s
}

func (s *NoteService) WithAudit(r audit.Recorder) *NoteService {
	if r != nil {
		s.auditLogger = r
	}
	return s
}

// WithPurger sets the deferred delete. Without one, a read note is deleted inline.
func (s *NoteService) WithPurger(p Purger) *NoteService {
	s.purger = p
	return s
}

func (s *NoteService) WithLogger(l logging.Logger) *NoteService {
	if l != nil {
		s.log = l
	}
	return s
}

// WithClock replaces the time source used for expiry decisions.
func (s *NoteService) WithClock(now func() time.Time) *NoteService {
	s.now = now
	return s
}

// Submit validates, encrypts and stores a note and returns its link.
// clientKey identifies the sender for rate limiting and audit only.
func (s *NoteService) Submit(ctx context.Context, text, password, clientKey string) (*models.SubmitResult, error) {
	if s.createLimiter != nil {
		if err := s.createLimiter.CheckLimit("note_create:" + clientKey); err != nil {
			s.record(ctx, &audit.Event{
				Level:     audit.LevelWarning,
				Action:    audit.ActionNoteRejected,
				ClientKey: clientKey,
				ErrorMsg:  err.Error(),
			})
			return nil, err
		}
	}

	if err := s.validator.ValidateNoteText(text); err != nil {
		s.rejected(ctx, clientKey, err)
		return nil, err
	}
	if err := s.validator.ValidateNotePassword(password); err != nil {
		s.rejected(ctx, clientKey, err)
		return nil, err
	}

	ciphertext, err := s.cipher.Encrypt(text, password)
	if err != nil {
		s.log.Error(ctx, "note encryption failed", "error", err)
		return nil, fmt.Errorf("%w: %v", errors.ErrEncryptionFailed, err)
	}

	expiresAt := s.now().Add(s.retention).UTC()

	id, err := s.store.Create(ctx, ciphertext, expiresAt)
	if err != nil {
		s.unavailable(ctx, "", err)
		return nil, err
	}

	noteLink, err := link.Build(s.baseURL, id)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Event{
		Action:    audit.ActionNoteCreated,
		NoteID:    id,
		ClientKey: clientKey,
		Success:   true,
	})
	s.log.Info(ctx, "note created", "note_id", id, "expires_at", expiresAt)

	return &models.SubmitResult{
		ID:        id,
		Link:      noteLink,
		ExpiresAt: expiresAt,
	}, nil
}

// Load fetches the note behind id and resolves the view's first state.
// The returned view is never nil.
func (s *NoteService) Load(ctx context.Context, id string) *View {
	id = strings.TrimSpace(id)
	v := &View{svc: s, state: models.ViewState{Status: models.StatusLoading, NoteID: id}}

	if s.validator.ValidateNoteID(id) != nil {
		v.state.Status = models.StatusNotFound
		return v
	}

	note, err := s.store.GetByID(ctx, id)
	switch {
	case err != nil:
		s.unavailable(ctx, id, err)
		v.state.Status = models.StatusUnavailable
		v.state.Err = err
	case note == nil:
		v.state.Status = models.StatusNotFound
	case note.IsExpired(s.now()):
		s.expire(ctx, id)
		v.state.Status = models.StatusExpired
	case note.Read:
		v.state.Status = models.StatusAlreadyRead
	default:
		v.ciphertext = note.Ciphertext
		v.expiresAt = note.ExpiresAt
		v.state.Status = models.StatusLocked
		s.log.Debug(ctx, "note loaded", "note_id", id)
	}

	return v
}

// Open loads id and, if it is locked, tries password once.
func (s *NoteService) Open(ctx context.Context, id, password string) models.ViewState {
	v := s.Load(ctx, id)
	if v.State().Status != models.StatusLocked {
		return v.State()
	}
	return v.Unlock(ctx, password)
}

// Ping reports whether the store answers.
func (s *NoteService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// RecordPurged audits a delete done by the purge scheduler.
func (s *NoteService) RecordPurged(ctx context.Context, id string) {
	s.record(ctx, &audit.Event{Action: audit.ActionNotePurged, NoteID: id, Success: true})
}

// RecordSwept audits a background expiry sweep.
func (s *NoteService) RecordSwept(ctx context.Context, ids []string) {
	for _, id := range ids {
		s.forget(id)
		s.record(ctx, &audit.Event{Action: audit.ActionNotesSwept, NoteID: id, Success: true})
	}
}

// expire deletes an expired note. A failed delete still reports Expired;
// the next load or sweep retries it.
func (s *NoteService) expire(ctx context.Context, id string) {
	if s.purger != nil {
		s.purger.Cancel(id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Warn(ctx, "failed to delete expired note", "note_id", id, "error", err)
	}
	s.forget(id)
	s.record(ctx, &audit.Event{Action: audit.ActionNoteExpired, NoteID: id, Success: true})
}

// consumed arms the deferred delete of a note that was just read and returns
// the delay until it runs.
func (s *NoteService) consumed(ctx context.Context, id string) time.Duration {
	s.forget(id)

	if s.purger != nil && s.purgeDelay > 0 {
		s.purger.Schedule(id, s.purgeDelay)
		return s.purgeDelay
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Warn(ctx, "failed to delete read note", "note_id", id, "error", err)
		return 0
	}
	s.RecordPurged(ctx, id)
	return 0
}

func (s *NoteService) forget(id string) {
	if s.unlockLimiter != nil {
		s.unlockLimiter.Forget("note_unlock:" + id)
	}
}

func (s *NoteService) rejected(ctx context.Context, clientKey string, err error) {
	s.record(ctx, &audit.Event{
		Level:     audit.LevelWarning,
		Action:    audit.ActionNoteRejected,
		ClientKey: clientKey,
		ErrorMsg:  err.Error(),
	})
}

func (s *NoteService) unavailable(ctx context.Context, id string, err error) {
	s.log.Error(ctx, "note store unavailable", "note_id", id, "error", err)
	s.record(ctx, &audit.Event{
		Level:    audit.LevelError,
		Action:   audit.ActionStoreUnavailable,
		NoteID:   id,
		ErrorMsg: err.Error(),
	})
}

func (s *NoteService) record(ctx context.Context, event *audit.Event) {
	if err := s.auditLogger.Log(event); err != nil {
		s.log.Warn(ctx, "failed to record audit event", "action", event.Action, "error", err)
	}
}

type nopRecorder struct{}

func (nopRecorder) Log(*audit.Event) error { return nil }

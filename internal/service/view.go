package service

import (
	"context"
	"sync"
	"time"

	"github.com/amirk1998/secret-notes/internal/audit"
	"github.com/amirk1998/secret-notes/internal/models"
	"github.com/amirk1998/secret-notes/pkg/errors"
)

// View is one reader's pass over a note: Loading, then a terminal state or
// Locked, and from Locked either Success or Locked again with an error.
// A View is safe for concurrent use; attempts are serialised.
type View struct {
	svc *NoteService

	mu         sync.Mutex
	state      models.ViewState
	ciphertext string
	expiresAt  time.Time
}

// State returns the current state.
func (v *View) State() models.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Unlock tries password against a Locked view. The plaintext is handed out
// once; afterwards the view reports AlreadyRead. Any other state is returned
// unchanged.
func (v *View) Unlock(ctx context.Context, password string) models.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.Status != models.StatusLocked {
		return v.state
	}

	s := v.svc
	id := v.state.NoteID

	if s.unlockLimiter != nil {
		if err := s.unlockLimiter.CheckLimit("note_unlock:" + id); err != nil {
			s.record(ctx, &audit.Event{
				Level:    audit.LevelWarning,
				Action:   audit.ActionUnlockThrottled,
				NoteID:   id,
				ErrorMsg: err.Error(),
			})
			v.state.Err = err
			return v.state
		}
	}

	if v.expiresAt.Before(s.now()) {
		s.expire(ctx, id)
		v.finish(models.StatusExpired, nil)
		return v.state
	}

	text, ok := s.cipher.Decrypt(v.ciphertext, password)
	if !ok {
		s.record(ctx, &audit.Event{
			Level:  audit.LevelWarning,
			Action: audit.ActionUnlockFailed,
			NoteID: id,
		})
		v.state.Err = errors.ErrWrongPassword
		return v.state
	}

	claimed, err := s.store.ClaimUnread(ctx, id)
	if err != nil {
		s.unavailable(ctx, id, err)
		v.finish(models.StatusUnavailable, err)
		return v.state
	}
	if !claimed {
		v.finish(models.StatusAlreadyRead, nil)
		return v.state
	}

	purgeIn := s.consumed(ctx, id)
	s.record(ctx, &audit.Event{Action: audit.ActionNoteRead, NoteID: id, Success: true})
	s.log.Info(ctx, "note read", "note_id", id)

	v.finish(models.StatusAlreadyRead, nil)
	return models.ViewState{
		Status:  models.StatusSuccess,
		NoteID:  id,
		Text:    text,
		PurgeIn: purgeIn,
	}
}

func (v *View) finish(status models.ViewStatus, err error) {
	v.state.Status = status
	v.state.Err = err
	v.ciphertext = ""
}

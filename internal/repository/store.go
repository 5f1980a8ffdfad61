package repository

import (
	"context"
	"time"

	"github.com/amirk1998/secret-notes/internal/models"
)

// NoteStore is the persistence contract of the note lifecycle.
//
// Every backend failure is wrapped so errors.Is(err, errors.ErrStoreUnavailable)
// holds. Absence is not an error: GetByID returns (nil, nil) and Delete of a
// missing id succeeds.
type NoteStore interface {
	Create(ctx context.Context, ciphertext string, expiresAt time.Time) (string, error)
	GetByID(ctx context.Context, id string) (*models.Note, error)
	MarkRead(ctx context.Context, id string) error
	// ClaimUnread sets read=true only if it was false and reports whether this call did it.
	ClaimUnread(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes notes whose expiry is before now and returns their ids.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
	Ping(ctx context.Context) error
}

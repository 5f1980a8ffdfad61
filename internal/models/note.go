package models

import (
	"time"
)

// Note is the persisted record. Plaintext never reaches this type.
type Note struct {
	ID         string    `json:"id"`
	Ciphertext string    `json:"-"` // Never expose the payload
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired reports whether the note is past its retention window at now
func (n *Note) IsExpired(now time.Time) bool {
	return n.ExpiresAt.Before(now)
}

type SubmitNoteRequest struct {
	Text     string `json:"text"`
	Password string `json:"password"`
}

type SubmitResult struct {
	ID        string    `json:"id"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UnlockNoteRequest struct {
	Password string `json:"password"`
}

package validator

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/amirk1998/secret-notes/pkg/errors"
)

const (
	// MinPasswordLength is counted in characters, not bytes.
	MinPasswordLength = 4
	MaxPasswordLength = 1024
	MaxNoteBytes      = 1 << 20
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateNoteText rejects empty, whitespace-only and oversized note text
func (v *Validator) ValidateNoteText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.ValidationError(errors.ErrEmptyNote)
	}

	if len(text) > MaxNoteBytes {
		return errors.ValidationError(errors.ErrNoteTooLong)
	}

	if !utf8.ValidString(text) {
		return errors.ValidationError(errors.ErrInvalidEncoding)
	}

	return nil
}

// ValidateNotePassword checks the per-note password length
func (v *Validator) ValidateNotePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return errors.ValidationError(errors.ErrWeakPassword)
	}
	if n > MaxPasswordLength {
		return errors.ValidationError(errors.ErrPasswordTooLong)
	}

	return nil
}

// ValidateNoteID checks that id looks like an id issued by the store
func (v *Validator) ValidateNoteID(id string) error {
	if id == "" {
		return errors.ErrInvalidNoteID
	}

	if _, err := uuid.Parse(id); err != nil {
		return errors.ErrInvalidNoteID
	}

	return nil
}

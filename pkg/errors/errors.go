package errors

import (
	"errors"
	"fmt"
)

// Custom error types for better error handling
var (
	// Validation errors
	ErrValidation      = errors.New("invalid input")
	ErrEmptyNote       = errors.New("note text cannot be empty")
	ErrNoteTooLong     = errors.New("note text too long")
	ErrInvalidEncoding = errors.New("note text must be valid UTF-8")
	ErrWeakPassword    = errors.New("password too short")
	ErrPasswordTooLong = errors.New("password too long")
	ErrInvalidNoteID   = errors.New("invalid note id")
	ErrInvalidLink     = errors.New("invalid note link")
	ErrInvalidBaseURL  = errors.New("invalid base url")

	// Note lifecycle outcomes
	ErrNoteNotFound    = errors.New("note not found")
	ErrNoteExpired     = errors.New("note expired")
	ErrNoteAlreadyRead = errors.New("note already read")
	ErrWrongPassword   = errors.New("wrong password")

	// Storage errors
	ErrStoreUnavailable = errors.New("note store unavailable")

	// Encryption errors
	ErrEncryptionFailed = errors.New("encryption failed")

	// Rate limiting errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context
type AppError struct {
	Err     error
	Message string
	Code    int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(err error, message string, code int) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// ValidationError builds a 400 AppError that matches both ErrValidation and cause.
func ValidationError(cause error) *AppError {
	return NewAppError(fmt.Errorf("%w: %w", ErrValidation, cause), "", 400)
}

// Unavailable wraps a backend failure so callers can match ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

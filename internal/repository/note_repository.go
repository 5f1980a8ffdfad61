package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/amirk1998/secret-notes/internal/database"
	"github.com/amirk1998/secret-notes/internal/models"
	apperrors "github.com/amirk1998/secret-notes/pkg/errors"
)

const defaultQueryTimeout = 5 * time.Second

// NoteRepository stores notes in the SQLCipher database.
// Timestamps are kept as unix milliseconds (UTC).
type NoteRepository struct {
	db      *sql.DB
	tx      *database.TransactionManager
	timeout time.Duration
	newID   func() string
}

var _ NoteStore = (*NoteRepository)(nil)

// NewNoteRepository creates a new note repository. A non-positive timeout uses the default.
func NewNoteRepository(db *sql.DB, timeout time.Duration) *NoteRepository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &NoteRepository{
		db:      db,
		tx:      database.NewTransactionManager(db),
		timeout: timeout,
		newID:   uuid.NewString,
	}
}

// Create inserts an unread note and returns its id. created_at is stamped by the database.
func (r *NoteRepository) Create(ctx context.Context, ciphertext string, expiresAt time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
        INSERT INTO notes (id, ciphertext, read, expires_at)
        VALUES (?, ?, 0, ?)
    `

	id := r.newID()
	if _, err := r.db.ExecContext(ctx, query, id, ciphertext, expiresAt.UnixMilli()); err != nil {
		return "", apperrors.Unavailable("create note", err)
	}

	return id, nil
}

// GetByID returns the note or nil when no record exists
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
        SELECT id, ciphertext, read, created_at, expires_at
        FROM notes
        WHERE id = ?
    `

	var (
		note      models.Note
		createdAt int64
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&note.ID,
		&note.Ciphertext,
		&note.Read,
		&createdAt,
		&expiresAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Unavailable("get note", err)
	}

	note.CreatedAt = time.UnixMilli(createdAt).UTC()
	note.ExpiresAt = time.UnixMilli(expiresAt).UTC()

	return &note, nil
}

// MarkRead sets read=true. Repeated calls and missing ids are not errors.
func (r *NoteRepository) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `UPDATE notes SET read = 1 WHERE id = ?`, id); err != nil {
		return apperrors.Unavailable("mark note read", err)
	}

	return nil
}

// ClaimUnread flips read from false to true in a single statement
func (r *NoteRepository) ClaimUnread(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `UPDATE notes SET read = 1 WHERE id = ? AND read = 0`, id)
	if err != nil {
		return false, apperrors.Unavailable("claim note", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Unavailable("claim note", err)
	}

	return rows == 1, nil
}

// Delete removes a note. Deleting a missing id succeeds.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return apperrors.Unavailable("delete note", err)
	}

	return nil
}

// DeleteExpired removes every note that expired before now and returns the removed ids
func (r *NoteRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	cutoff := now.UnixMilli()
	var ids []string

	err := r.tx.Execute(ctx, func(ctx context.Context, tx database.DBTX) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM notes WHERE expires_at < ?`, cutoff)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM notes WHERE expires_at < ?`, cutoff)
		return err
	})
	if err != nil {
		return nil, apperrors.Unavailable("delete expired notes", err)
	}

	return ids, nil
}

// Ping checks that the database answers
func (r *NoteRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return apperrors.Unavailable("ping", err)
	}
	return nil
}

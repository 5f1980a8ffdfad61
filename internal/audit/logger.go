package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/amirk1998/secret-notes/internal/logging"
)

const queueSize = 1000

var (
	ErrQueueFull    = errors.New("audit log queue is full")
	ErrLoggerClosed = errors.New("audit logger is closed")
	ErrNoDatabase   = errors.New("audit log has no database")
)

// Logger writes audit events to the audit_log table and to a JSON-lines
// file. db may be nil, in which case only the file is written.
type Logger struct {
	db         *sql.DB
	logFile    *os.File
	log        logging.Logger
	asyncMode  bool
	eventQueue chan *Event
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

var _ Recorder = (*Logger)(nil)

// NewLogger creates a new audit logger. The audit_log table comes from migrations.
func NewLogger(db *sql.DB, logFilePath string, asyncMode bool, log logging.Logger) (*Logger, error) {
	if log == nil {
		log = logging.Nop{}
	}

	// Ensure log directory exists
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger := &Logger{
		db:        db,
		logFile:   logFile,
		log:       log,
		asyncMode: asyncMode,
		ctx:       ctx,
		cancel:    cancel,
	}

	if asyncMode {
		logger.eventQueue = make(chan *Event, queueSize)
		logger.startAsyncLogger()
	}

	return logger, nil
}

// Log records an audit event
func (al *Logger) Log(event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Resource == "" {
		event.Resource = ResourceNote
	}
	if event.Level == "" {
		event.Level = LevelInfo
	}

	al.mu.RLock()
	defer al.mu.RUnlock()

	if al.closed {
		return ErrLoggerClosed
	}

	if al.asyncMode {
		select {
		case al.eventQueue <- event:
			return nil
		default:
			return ErrQueueFull
		}
	}

	return al.writeEvent(event)
}

// writeEvent writes event to database and file
func (al *Logger) writeEvent(event *Event) error {
	if al.db != nil {
		query := `
            INSERT INTO audit_log (
                timestamp, level, action, resource, note_id,
                client_key, success, error_msg, metadata
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        `

		result, err := al.db.Exec(query,
			event.Timestamp.UnixMilli(),
			event.Level,
			event.Action,
			event.Resource,
			nullString(event.NoteID),
			nullString(event.ClientKey),
			event.Success,
			nullString(event.ErrorMsg),
			nullString(event.Metadata),
		)
		if err != nil {
			// Continue to write to file even if DB write fails
			al.log.Warn(context.Background(), "failed to write audit log to database", "action", event.Action, "error", err)
		} else {
			event.ID, _ = result.LastInsertId()
		}
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := al.logFile.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// startAsyncLogger starts async logging worker
func (al *Logger) startAsyncLogger() {
	al.wg.Add(1)
	go func() {
		defer al.wg.Done()
		for {
			select {
			case event := <-al.eventQueue:
				if err := al.writeEvent(event); err != nil {
					al.log.Error(context.Background(), "failed to write audit event", "action", event.Action, "error", err)
				}
			case <-al.ctx.Done():
				// Drain remaining events
				for {
					select {
					case event := <-al.eventQueue:
						_ = al.writeEvent(event)
					default:
						return
					}
				}
			}
		}
	}()
}

// QueryLogs queries audit logs with filters, newest first
func (al *Logger) QueryLogs(ctx context.Context, filters QueryFilters) ([]*Event, error) {
	if al.db == nil {
		return nil, ErrNoDatabase
	}

	query := `
        SELECT id, timestamp, level, action, resource, note_id,
               client_key, success, error_msg, metadata
        FROM audit_log
        WHERE 1=1
    `

	args := []interface{}{}

	if filters.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, filters.StartTime.UnixMilli())
	}

	if filters.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, filters.EndTime.UnixMilli())
	}

	if filters.NoteID != "" {
		query += " AND note_id = ?"
		args = append(args, filters.NoteID)
	}

	if filters.Action != "" {
		query += " AND action = ?"
		args = append(args, filters.Action)
	}

	if filters.Level != "" {
		query += " AND level = ?"
		args = append(args, filters.Level)
	}

	if filters.Success != nil {
		query += " AND success = ?"
		args = append(args, *filters.Success)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	if filters.Limit <= 0 {
		filters.Limit = 100
	}
	args = append(args, filters.Limit)

	rows, err := al.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			event                                 Event
			ts                                    int64
			noteID, clientKey, errorMsg, metadata sql.NullString
		)
		err := rows.Scan(
			&event.ID,
			&ts,
			&event.Level,
			&event.Action,
			&event.Resource,
			&noteID,
			&clientKey,
			&event.Success,
			&errorMsg,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		event.Timestamp = time.UnixMilli(ts).UTC()
		event.NoteID = noteID.String
		event.ClientKey = clientKey.String
		event.ErrorMsg = errorMsg.String
		event.Metadata = metadata.String
		events = append(events, &event)
	}

	return events, rows.Err()
}

// Close flushes queued events and closes the log file
func (al *Logger) Close() error {
	al.mu.Lock()
	if al.closed {
		al.mu.Unlock()
		return nil
	}
	al.closed = true
	al.mu.Unlock()

	al.cancel()
	al.wg.Wait()

	return al.logFile.Close()
}

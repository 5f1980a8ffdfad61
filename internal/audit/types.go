package audit

import "time"

type LogLevel string

const (
	LevelInfo     LogLevel = "INFO"
	LevelWarning  LogLevel = "WARNING"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
)

// Actions recorded for the note lifecycle.
const (
	ActionNoteCreated      = "NOTE_CREATED"
	ActionNoteRejected     = "NOTE_REJECTED"
	ActionUnlockFailed     = "NOTE_UNLOCK_FAILED"
	ActionUnlockThrottled  = "NOTE_UNLOCK_THROTTLED"
	ActionNoteRead         = "NOTE_READ"
	ActionNoteExpired      = "NOTE_EXPIRED"
	ActionNotePurged       = "NOTE_PURGED"
	ActionNotesSwept       = "NOTES_SWEPT"
	ActionUnlockThreshold  = "FAILED_UNLOCK_THRESHOLD"
	ActionStoreUnavailable = "STORE_UNAVAILABLE"
)

const ResourceNote = "note"

// Event is one audit record. It carries ids and outcomes only; note text and
// passwords are never part of an event.
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	NoteID    string    `json:"note_id,omitempty"`
	ClientKey string    `json:"client_key,omitempty"`
	Success   bool      `json:"success"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
}

type QueryFilters struct {
	StartTime *time.Time
	EndTime   *time.Time
	NoteID    string
	Action    string
	Level     LogLevel
	Success   *bool
	Limit     int
}

// Recorder is what the note service writes audit events to.
type Recorder interface {
	Log(event *Event) error
}

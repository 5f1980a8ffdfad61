package models

import "time"

// ViewStatus is the state of a single note view.
type ViewStatus int

const (
	StatusLoading ViewStatus = iota
	StatusNotFound
	StatusExpired
	StatusAlreadyRead
	StatusUnavailable
	StatusLocked
	StatusSuccess
)

var statusNames = map[ViewStatus]string{
	StatusLoading:     "loading",
	StatusNotFound:    "not_found",
	StatusExpired:     "expired",
	StatusAlreadyRead: "already_read",
	StatusUnavailable: "unavailable",
	StatusLocked:      "locked",
	StatusSuccess:     "success",
}

func (s ViewStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen without a fresh load.
func (s ViewStatus) Terminal() bool {
	return s != StatusLoading && s != StatusLocked
}

// ViewState is what a caller renders. Text is set only in StatusSuccess;
// Err carries the reason for Locked (wrong password, rate limit) and Unavailable.
type ViewState struct {
	Status  ViewStatus
	NoteID  string
	Text    string
	Err     error
	PurgeIn time.Duration
}

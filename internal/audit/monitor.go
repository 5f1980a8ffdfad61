package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/amirk1998/secret-notes/internal/logging"
)

const (
	failedUnlockWindow    = 5 * time.Minute
	failedUnlockThreshold = 5
)

type Monitor struct {
	logger *Logger
	log    logging.Logger
	now    func() time.Time
}

// NewMonitor creates a new security monitor
func NewMonitor(logger *Logger, log logging.Logger) *Monitor {
	if log == nil {
		log = logging.Nop{}
	}
	return &Monitor{
		logger: logger,
		log:    log,
		now:    time.Now,
	}
}

// DetectFailedUnlocks returns the note ids with at least five failed unlock
// attempts in the last five minutes and records a critical event for each.
func (m *Monitor) DetectFailedUnlocks(ctx context.Context) ([]string, error) {
	now := m.now()
	start := now.Add(-failedUnlockWindow)

	events, err := m.logger.QueryLogs(ctx, QueryFilters{
		StartTime: &start,
		EndTime:   &now,
		Action:    ActionUnlockFailed,
		Limit:     1000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	failedAttempts := make(map[string]int)
	var order []string
	for _, event := range events {
		if event.Success || event.NoteID == "" {
			continue
		}
		if failedAttempts[event.NoteID] == 0 {
			order = append(order, event.NoteID)
		}
		failedAttempts[event.NoteID]++
	}

	var flagged []string
	for _, noteID := range order {
		count := failedAttempts[noteID]
		if count < failedUnlockThreshold {
			continue
		}
		flagged = append(flagged, noteID)

		m.log.Warn(ctx, "security alert: repeated failed unlocks", "note_id", noteID, "attempts", count)

		if err := m.logger.Log(&Event{
			Level:    LevelCritical,
			Action:   ActionUnlockThreshold,
			NoteID:   noteID,
			Success:  false,
			ErrorMsg: fmt.Sprintf("%d failed attempts detected", count),
		}); err != nil {
			m.log.Error(ctx, "failed to record alert", "note_id", noteID, "error", err)
		}
	}

	return flagged, nil
}

// Run checks for suspicious activity every interval until ctx is done
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.DetectFailedUnlocks(ctx); err != nil {
				m.log.Warn(ctx, "failed unlock detection failed", "error", err)
			}
		}
	}
}

// Package events provides in-process event emission and fan-out.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	WatchlistChanged EventType = "WATCHLIST_CHANGED"
	SettingsChanged  EventType = "SETTINGS_CHANGED"
	QuotesRefreshed  EventType = "QUOTES_REFRESHED"
	BackupCompleted  EventType = "BACKUP_COMPLETED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"

	JobStarted   EventType = "JOB_STARTED"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"
)

// Event represents a system event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

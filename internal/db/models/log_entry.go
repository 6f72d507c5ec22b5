package models

import "time"

// LogEntry represents a single runtime log line emitted by an app
type LogEntry struct {
	ID        string
	AppID     string
	Level     string
	Message   string
	CreatedAt time.Time
}

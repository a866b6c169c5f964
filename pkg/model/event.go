package model

import "time"

// ExternalEvent is a read-only projection of a provider calendar event.
// It is only used to report conflict reasons and is never persisted.
type ExternalEvent struct {
	Summary   string    `json:"summary"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

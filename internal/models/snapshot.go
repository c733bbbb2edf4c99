package models

import "time"

// StatusSnapshot is the global "now serving" view produced on every poll.
// A zero CurrentServing means nobody is being served.
type StatusSnapshot struct {
	CurrentServing int        `json:"current_serving"`
	WindowNumber   *int       `json:"window_number,omitempty"`
	WindowName     *string    `json:"window_name,omitempty"`
	WaitingCount   int        `json:"waiting_count"`
	CompletedCount int        `json:"completed_count"`
	TotalBookings  int        `json:"total_bookings"`
	Date           string     `json:"date"`
	IsActive       bool       `json:"is_active"`
	LastRecallTime *time.Time `json:"last_recall_time,omitempty"`
	Version        int64      `json:"version"`
}

// Serving is the mutable part of the snapshot, written by UpdateServing.
type Serving struct {
	QueueNumber    int
	WindowID       *int64
	WindowNumber   *int
	WindowName     *string
	LastRecallTime *time.Time
	Version        int64
}

package models

import "time"

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	DateToday    = "today"
	DateTomorrow = "tomorrow"
)

type Booking struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           *string    `json:"email,omitempty"`
	BookingDate     time.Time  `json:"booking_date"`
	QueueNumber     int        `json:"queue_number"`
	Status          string     `json:"status"`
	WindowID        *int64     `json:"window_id,omitempty"`
	WindowNumber    *int       `json:"window_number,omitempty"`
	WindowName      *string    `json:"window_name,omitempty"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `json:"actual_end_time,omitempty"`
	StartedBy       *int64     `json:"started_by,omitempty"`
	StartedByName   *string    `json:"started_by_name,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsTerminal reports whether no further transition is legal.
func (b Booking) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled
}

// ServiceDuration is the elapsed time between start and end of service.
// Zero until both stamps exist.
func (b Booking) ServiceDuration() time.Duration {
	if b.ActualStartTime == nil || b.ActualEndTime == nil {
		return 0
	}
	return b.ActualEndTime.Sub(*b.ActualStartTime)
}

type CreateBookingRequest struct {
	Name                 string `json:"name" validate:"required,min=2,max=255"`
	Phone                string `json:"phone" validate:"required,min=10,max=32"`
	Email                string `json:"email" validate:"omitempty,email,max=255"`
	BookingDateSelection string `json:"booking_date_selection" validate:"omitempty,oneof=today tomorrow"`
}

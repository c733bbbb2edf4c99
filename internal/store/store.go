package store

import (
	"context"
	"time"

	"backend-booking/internal/models"
)

const DateLayout = "2006-01-02"

type CreateBookingInput struct {
	Name        string
	Phone       string
	Email       *string
	BookingDate time.Time
}

type ListFilter struct {
	Date   *time.Time
	Status string
}

// BookingStore is the durable transition authority for bookings. Every
// transition is guarded by the current status; a rejected transition leaves
// the booking untouched.
type BookingStore interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (models.Booking, error)
	ListBookings(ctx context.Context, filter ListFilter) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	NextWaiting(ctx context.Context, staffUserID *int64) (models.Booking, error)
	StartProcessing(ctx context.Context, id, staffUserID int64) (models.Booking, error)
	CompleteBooking(ctx context.Context, id int64) (models.Booking, error)
	CancelBooking(ctx context.Context, id, staffUserID int64) (models.Booking, error)
	UpdateBookingWindow(ctx context.Context, id, windowID int64) (models.Booking, error)
	GetStatusSnapshot(ctx context.Context) (models.StatusSnapshot, error)
	UpdateServing(ctx context.Context, queueNumber int, windowID *int64, forceRecall bool) error
	DashboardStats(ctx context.Context, date time.Time) (models.DashboardStats, error)
}

// WindowRegistry maps staff users to service windows.
type WindowRegistry interface {
	GetAssignedWindow(ctx context.Context, staffUserID int64) (models.Window, error)
	GetWindow(ctx context.Context, windowID int64) (models.Window, error)
	AssignWindow(ctx context.Context, staffUserID, windowID int64) (models.Window, error)
	ListWindows(ctx context.Context) ([]models.Window, error)
}

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// QueueSequence hands out per-date queue numbers.
type QueueSequence interface {
	Next(ctx context.Context, date string) (int, error)
}

// ServingState holds the global "now serving" value for a date.
type ServingState interface {
	Current(ctx context.Context, date string) (models.Serving, error)
	Publish(ctx context.Context, date string, serving models.Serving, forceRecall bool, at time.Time) (models.Serving, error)
}

type Counts struct {
	Waiting   int
	Completed int
	Total     int
}

// Options carries the clock and business-day settings shared by store
// implementations.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	OpenAt   string
	CloseAt  string
}

func (o Options) WithDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) Today() time.Time {
	now := o.Now().In(o.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, o.Location)
}

// ResolveBookingDate turns a date selection into a calendar day.
func (o Options) ResolveBookingDate(selection string) time.Time {
	today := o.Today()
	if selection == models.DateTomorrow {
		return today.AddDate(0, 0, 1)
	}
	return today
}

func BuildSnapshot(date string, serving models.Serving, counts Counts, active bool) models.StatusSnapshot {
	return models.StatusSnapshot{
		CurrentServing: serving.QueueNumber,
		WindowNumber:   serving.WindowNumber,
		WindowName:     serving.WindowName,
		WaitingCount:   counts.Waiting,
		CompletedCount: counts.Completed,
		TotalBookings:  counts.Total,
		Date:           date,
		IsActive:       active,
		LastRecallTime: serving.LastRecallTime,
		Version:        serving.Version,
	}
}

// NextRecallTime returns at, nudged forward when needed so that recall
// stamps strictly increase even under a coarse or repeated clock reading.
func NextRecallTime(prev *time.Time, at time.Time) time.Time {
	if prev != nil && !at.After(*prev) {
		return prev.Add(time.Millisecond)
	}
	return at
}

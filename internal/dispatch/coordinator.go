// Package dispatch drives bookings through their lifecycle against the
// booking store and the window registry.
//
// The coordinator keeps no local state and takes no locks. Two staff members
// racing for the same ticket are arbitrated by the store's transition guard,
// and the loser gets store.ErrNotInWaitingState back unchanged.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"backend-booking/internal/models"
	"backend-booking/internal/store"
)

const DefaultWindowTimeout = 3 * time.Second

type Coordinator struct {
	bookings      store.BookingStore
	windows       store.WindowRegistry
	windowTimeout time.Duration
	log           zerolog.Logger
}

func NewCoordinator(bookings store.BookingStore, windows store.WindowRegistry, windowTimeout time.Duration) *Coordinator {
	if windowTimeout <= 0 {
		windowTimeout = DefaultWindowTimeout
	}
	return &Coordinator{
		bookings:      bookings,
		windows:       windows,
		windowTimeout: windowTimeout,
		log:           log.With().Str("component", "dispatch").Logger(),
	}
}

// DispatchNext selects the oldest waiting booking visible to the staff user
// and starts it. A concurrent start on the same booking is reported, not
// retried.
func (c *Coordinator) DispatchNext(ctx context.Context, staffUserID int64) (Result, error) {
	next, err := c.bookings.NextWaiting(ctx, &staffUserID)
	if err != nil {
		return Result{}, err
	}
	return c.Start(ctx, next.ID, staffUserID)
}

// Start moves a waiting booking to in_progress. Only the transition itself can
// fail the call; window resolution, rebinding and publishing degrade into the
// returned step outcomes.
func (c *Coordinator) Start(ctx context.Context, bookingID, staffUserID int64) (Result, error) {
	var res Result

	window, lookupErr := c.lookupWindow(ctx, staffUserID)
	res.WindowLookup = outcome(lookupErr)
	if lookupErr != nil {
		c.log.Warn().Err(lookupErr).
			Int64("booking_id", bookingID).
			Int64("staff_user_id", staffUserID).
			Msg("window lookup failed, starting without window")
	}

	booking, err := c.bookings.StartProcessing(ctx, bookingID, staffUserID)
	if err != nil {
		return Result{}, err
	}

	if lookupErr == nil {
		bound, err := c.bindWindow(ctx, bookingID, window.ID)
		res.WindowBind = outcome(err)
		if err != nil {
			c.log.Warn().Err(err).
				Int64("booking_id", bookingID).
				Int64("window_id", window.ID).
				Msg("window bind failed")
		} else {
			booking = bound
		}
	} else {
		res.WindowBind = skipped()
	}

	err = c.bookings.UpdateServing(ctx, booking.QueueNumber, booking.WindowID, false)
	res.Publish = outcome(err)
	if err != nil {
		c.log.Error().Err(err).
			Int64("booking_id", bookingID).
			Int("queue_number", booking.QueueNumber).
			Msg("serving publish failed")
	}

	res.Booking = booking
	c.log.Info().
		Int64("booking_id", bookingID).
		Int("queue_number", booking.QueueNumber).
		Int64("staff_user_id", staffUserID).
		Bool("degraded", res.Degraded()).
		Msg("booking started")
	return res, nil
}

// Complete finishes an in_progress booking and reports how long it took.
func (c *Coordinator) Complete(ctx context.Context, bookingID int64) (models.Booking, time.Duration, error) {
	booking, err := c.bookings.CompleteBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, 0, err
	}
	duration := booking.ServiceDuration()
	c.log.Info().
		Int64("booking_id", bookingID).
		Dur("service_duration", duration).
		Msg("booking completed")
	return booking, duration, nil
}

// Cancel is destructive; callers confirm before calling it.
func (c *Coordinator) Cancel(ctx context.Context, bookingID, staffUserID int64) (models.Booking, error) {
	booking, err := c.bookings.CancelBooking(ctx, bookingID, staffUserID)
	if err != nil {
		return models.Booking{}, err
	}
	c.log.Info().
		Int64("booking_id", bookingID).
		Int64("staff_user_id", staffUserID).
		Msg("booking cancelled")
	return booking, nil
}

// Recall republishes an in_progress booking with a fresh recall stamp so the
// display announces it again. The staff user's current window wins; when it
// cannot be resolved or bound, the booking's existing binding is published so
// the display and the booking agree.
func (c *Coordinator) Recall(ctx context.Context, bookingID, staffUserID int64) (Result, error) {
	booking, err := c.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	if booking.Status != models.StatusInProgress {
		return Result{}, store.ErrNotInProgress
	}

	var res Result
	window, lookupErr := c.lookupWindow(ctx, staffUserID)
	res.WindowLookup = outcome(lookupErr)
	if lookupErr != nil {
		c.log.Warn().Err(lookupErr).
			Int64("booking_id", bookingID).
			Msg("window lookup failed, recalling with bound window")
		res.WindowBind = skipped()
	} else {
		bound, err := c.bindWindow(ctx, bookingID, window.ID)
		res.WindowBind = outcome(err)
		if err != nil {
			c.log.Warn().Err(err).
				Int64("booking_id", bookingID).
				Int64("window_id", window.ID).
				Msg("window rebind failed")
		} else {
			booking = bound
		}
	}

	res.Booking = booking
	if err := c.bookings.UpdateServing(ctx, booking.QueueNumber, booking.WindowID, true); err != nil {
		res.Publish = failed(err)
		return res, fmt.Errorf("publish recall: %w", err)
	}
	res.Publish = ok()

	c.log.Info().
		Int64("booking_id", bookingID).
		Int("queue_number", booking.QueueNumber).
		Msg("booking recalled")
	return res, nil
}

func (c *Coordinator) lookupWindow(ctx context.Context, staffUserID int64) (models.Window, error) {
	ctx, cancel := context.WithTimeout(ctx, c.windowTimeout)
	defer cancel()
	return c.windows.GetAssignedWindow(ctx, staffUserID)
}

func (c *Coordinator) bindWindow(ctx context.Context, bookingID, windowID int64) (models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, c.windowTimeout)
	defer cancel()
	return c.bookings.UpdateBookingWindow(ctx, bookingID, windowID)
}

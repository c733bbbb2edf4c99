package store

import "errors"

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrWindowNotFound    = errors.New("window not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrNoWaitingTickets  = errors.New("no waiting tickets")
	ErrNotInWaitingState = errors.New("booking is not in waiting state")
	ErrNotInProgress     = errors.New("booking is not in progress")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrWindowNotAssigned = errors.New("no window assigned to user")
	ErrWindowInactive    = errors.New("window is not active")
)

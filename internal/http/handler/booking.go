package handler

import (
	"strings"

	"backend-booking/internal/models"
	"backend-booking/internal/store"

	"github.com/gofiber/fiber/v2"
)

// CreateBooking is public: a visitor takes a number for today or tomorrow.
func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	var req models.CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)

	if err := h.validate.Struct(req); err != nil {
		return h.validationError(c, err)
	}

	input := store.CreateBookingInput{
		Name:        req.Name,
		Phone:       req.Phone,
		BookingDate: h.opts.ResolveBookingDate(req.BookingDateSelection),
	}
	if req.Email != "" {
		input.Email = &req.Email
	}

	booking, err := h.bookings.CreateBooking(c.UserContext(), input)
	if err != nil {
		return h.storeError(c, err)
	}

	h.log.Info().
		Int64("booking_id", booking.ID).
		Int("queue_number", booking.QueueNumber).
		Str("date", booking.BookingDate.Format(store.DateLayout)).
		Msg("booking created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Booking created",
		"data":    booking,
	})
}

func (h *Handler) ListBookings(c *fiber.Ctx) error {
	date, err := h.queryDate(c, "date")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	status := c.Query("status")
	switch status {
	case "", models.StatusWaiting, models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
	default:
		return fail(c, fiber.StatusBadRequest, "Unknown status "+status)
	}

	bookings, err := h.bookings.ListBookings(c.UserContext(), store.ListFilter{Date: date, Status: status})
	if err != nil {
		return h.storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bookings,
		"total":   len(bookings),
	})
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid booking id")
	}

	booking, err := h.bookings.GetBooking(c.UserContext(), id)
	if err != nil {
		return h.storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    booking,
	})
}

// Dashboard returns totals and per-employee service times, today by default.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	date, err := h.queryDate(c, "date")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	if date == nil {
		today := h.opts.Today()
		date = &today
	}

	stats, err := h.bookings.DashboardStats(c.UserContext(), *date)
	if err != nil {
		return h.storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

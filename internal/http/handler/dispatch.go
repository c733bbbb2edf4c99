package handler

import (
	"backend-booking/internal/dispatch"
	"backend-booking/internal/store"

	"github.com/gofiber/fiber/v2"
)

func dispatchResponse(c *fiber.Ctx, message string, res dispatch.Result) error {
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  message,
		"degraded": res.Degraded(),
		"data":     res,
	})
}

// NextWaiting starts the oldest waiting booking visible to the caller.
func (h *Handler) NextWaiting(c *fiber.Ctx) error {
	staff, ok := staffID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unknown staff user")
	}

	res, err := h.coordinator.DispatchNext(c.UserContext(), staff)
	if err != nil {
		return h.storeError(c, err)
	}
	return dispatchResponse(c, "Next booking called", res)
}

func (h *Handler) StartBooking(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid booking id")
	}
	staff, ok := staffID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unknown staff user")
	}

	res, err := h.coordinator.Start(c.UserContext(), id, staff)
	if err != nil {
		return h.storeError(c, err)
	}
	return dispatchResponse(c, "Booking started", res)
}

func (h *Handler) CompleteBooking(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid booking id")
	}

	booking, duration, err := h.coordinator.Complete(c.UserContext(), id)
	if err != nil {
		return h.storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"message":          "Booking completed",
		"service_duration": store.FormatDuration(duration),
		"data":             booking,
	})
}

// CancelBooking requires ?confirm=true.
func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid booking id")
	}
	if !c.QueryBool("confirm", false) {
		return fail(c, fiber.StatusBadRequest, "Cancellation must be confirmed with confirm=true")
	}
	staff, ok := staffID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unknown staff user")
	}

	booking, err := h.coordinator.Cancel(c.UserContext(), id, staff)
	if err != nil {
		return h.storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Booking cancelled",
		"data":    booking,
	})
}

func (h *Handler) RecallBooking(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid booking id")
	}
	staff, ok := staffID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unknown staff user")
	}

	res, err := h.coordinator.Recall(c.UserContext(), id, staff)
	if err != nil {
		return h.storeError(c, err)
	}
	return dispatchResponse(c, "Booking recalled", res)
}

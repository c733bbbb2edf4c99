package handler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListWindows(c *fiber.Ctx) error {
	windows, err := h.windows.ListWindows(c.UserContext())
	if err != nil {
		return h.storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    windows,
	})
}

// MyWindow returns the window the caller is assigned to.
func (h *Handler) MyWindow(c *fiber.Ctx) error {
	staff, ok := staffID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unknown staff user")
	}

	window, err := h.windows.GetAssignedWindow(c.UserContext(), staff)
	if err != nil {
		return h.storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    window,
	})
}

// AssignWindow moves the caller onto ?windowId=, releasing any window they
// held before.
func (h *Handler) AssignWindow(c *fiber.Ctx) error {
	staff, ok := staffID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unknown staff user")
	}
	windowID := c.QueryInt("windowId", 0)
	if windowID <= 0 {
		return fail(c, fiber.StatusBadRequest, "windowId is required")
	}

	window, err := h.windows.AssignWindow(c.UserContext(), staff, int64(windowID))
	if err != nil {
		return h.storeError(c, err)
	}

	h.log.Info().
		Int64("staff_user_id", staff).
		Int64("window_id", window.ID).
		Msg("window assigned")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Window assigned",
		"data":    window,
	})
}

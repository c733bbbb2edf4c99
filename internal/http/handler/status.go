package handler

import (
	"context"

	"backend-booking/internal/models"

	"github.com/gofiber/fiber/v2"
)

// QueueStatus serves the latest polled snapshot, fetching one when the
// poller has not produced any yet.
func (h *Handler) QueueStatus(c *fiber.Ctx) error {
	snap, ok := h.latestSnapshot()
	if !ok {
		ctx, cancel := context.WithTimeout(c.UserContext(), statusFetchTimeout)
		defer cancel()

		var err error
		snap, err = h.bookings.GetStatusSnapshot(ctx)
		if err != nil {
			return h.storeError(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    snap,
	})
}

func (h *Handler) latestSnapshot() (models.StatusSnapshot, bool) {
	if h.poller == nil {
		return models.StatusSnapshot{}, false
	}
	return h.poller.Latest()
}

// UpdateServing lets an admin set the global serving number directly.
func (h *Handler) UpdateServing(c *fiber.Ctx) error {
	queueNumber := c.QueryInt("queueNumber", -1)
	if queueNumber < 0 {
		return fail(c, fiber.StatusBadRequest, "queueNumber must be a non-negative integer")
	}

	var windowID *int64
	if c.Query("windowId") != "" {
		raw := c.QueryInt("windowId", 0)
		if raw <= 0 {
			return fail(c, fiber.StatusBadRequest, "windowId must be a positive integer")
		}
		id := int64(raw)
		windowID = &id
	}
	forceRecall := c.QueryBool("forceRecall", false)

	if err := h.bookings.UpdateServing(c.UserContext(), queueNumber, windowID, forceRecall); err != nil {
		return h.storeError(c, err)
	}

	h.log.Info().
		Int("queue_number", queueNumber).
		Bool("force_recall", forceRecall).
		Msg("serving updated")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Serving updated",
	})
}

/*
|--------------------------------------------------------------------------
| Voice
|--------------------------------------------------------------------------
*/

func (h *Handler) VoiceStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"enabled":  h.voice.Enabled(),
			"displays": h.display.ClientCount(),
		},
	})
}

func (h *Handler) EnableVoice(c *fiber.Ctx) error {
	h.voice.Enable()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Voice announcements enabled",
	})
}

func (h *Handler) DisableVoice(c *fiber.Ctx) error {
	h.voice.Disable()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Voice announcements disabled",
	})
}

package handler

import "github.com/gofiber/fiber/v2"

// Logout is stateless; the client drops its token.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if id, ok := staffID(c); ok {
		h.log.Info().Int64("user_id", id).Msg("staff logged out")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

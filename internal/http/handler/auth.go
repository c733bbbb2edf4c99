package handler

import (
	"errors"
	"strings"

	"backend-booking/internal/config"
	"backend-booking/internal/models"
	"backend-booking/internal/store"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := h.validate.Struct(req); err != nil {
		return h.validationError(c, err)
	}

	user, err := h.users.GetUserByEmail(c.UserContext(), req.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return h.storeError(c, err)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	token, err := config.GenerateToken(user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("token generation failed")
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Welcome back, " + user.Name,
		"data": models.LoginResponse{
			Token: token,
			User:  models.ToUserResponse(user),
		},
	})
}

package handler

import (
	"backend-booking/internal/http/middleware"
	"backend-booking/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Register mounts every route on app. displayAuth guards the display socket.
func (h *Handler) Register(app *fiber.App, displayAuth fiber.Handler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Booking API running",
		})
	})

	// Public
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/bookings", h.CreateBooking)
	app.Get("/api/queue/status", h.QueueStatus)
	app.Get("/ws/display", displayAuth, h.DisplayUpgrade, h.DisplayWS())
	app.Static("/audio", AudioBasePath)

	// Staff (semua wajib login)
	api := app.Group("/api", middleware.JWTAuth())

	// Auth
	api.Post("/logout", h.Logout)

	// Bookings
	api.Get("/bookings", h.ListBookings)
	api.Get("/bookings/dashboard", h.Dashboard)
	api.Get("/bookings/:id", h.GetBooking)
	api.Post("/bookings/next-waiting", h.NextWaiting)
	api.Post("/bookings/:id/start", h.StartBooking)
	api.Post("/bookings/:id/complete", h.CompleteBooking)
	api.Post("/bookings/:id/cancel", h.CancelBooking)
	api.Post("/bookings/:id/recall", h.RecallBooking)

	// Windows
	api.Get("/windows", h.ListWindows)
	api.Get("/windows/me", h.MyWindow)
	api.Post("/windows/assign", h.AssignWindow)

	// ===== ADMIN ROUTES =====
	api.Post("/queue/update-serving", middleware.RoleAuth(models.RoleAdmin), h.UpdateServing)
	api.Get("/voice", middleware.RoleAuth(models.RoleAdmin), h.VoiceStatus)
	api.Post("/voice/enable", middleware.RoleAuth(models.RoleAdmin), h.EnableVoice)
	api.Post("/voice/disable", middleware.RoleAuth(models.RoleAdmin), h.DisableVoice)
}

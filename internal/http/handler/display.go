package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// AudioBasePath holds the tone files the displays play.
const AudioBasePath = "./public/audio"

// DisplayUpgrade rejects plain HTTP requests on the display socket.
func (h *Handler) DisplayUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fail(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
}

func (h *Handler) DisplayWS() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.display.Serve(conn)
	})
}

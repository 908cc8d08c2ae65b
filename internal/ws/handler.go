package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Snapshotter supplies the event sent to a viewer right after it connects
type Snapshotter func() Event

// Handler sends the initial snapshot and then streams hub events until the
// viewer disconnects.
func Handler(hub *Hub, initial Snapshotter) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client := newClient(hub, c)

		if initial != nil {
			if err := c.WriteJSON(initial()); err != nil {
				_ = c.Close()
				return
			}
		}

		if !hub.join(client) {
			_ = c.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// UpgradeMiddleware rejects plain HTTP requests to the events endpoint.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

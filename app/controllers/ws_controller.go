package controllers

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/adeelqureshi/taleempay/internal/pkg/notify"
)

// wsSession adapts a websocket connection to the hub's Session interface.
// Writes are serialized because the hub may push concurrently with pings.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) SendJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *wsSession) Close() error {
	return s.conn.Close()
}

// RequireWebSocketUpgrade rejects plain HTTP requests on websocket routes.
func RequireWebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleNotificationSocket registers the connection under the user id from
// the route and keeps it open until the client disconnects. The identity is
// trusted as-is; authentication happens upstream.
func HandleNotificationSocket(hub *notify.Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID := c.Params("userID")
		if userID == "" {
			_ = c.Close()
			return
		}

		session := &wsSession{conn: c}
		hub.Register(userID, session)
		defer hub.Unregister(userID, session)
		log.Printf("notification socket connected: user=%s sessions=%d", userID, hub.SessionCount(userID))

		// Drain client frames; the hub writes, we only watch for disconnect.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		log.Printf("notification socket disconnected: user=%s", userID)
	})
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adeelqureshi/taleempay/app/controllers"
	"github.com/adeelqureshi/taleempay/internal/pkg/notify"
)

type WsRouter struct {
	hub *notify.Hub
}

func NewWsRouter(hub *notify.Hub) *WsRouter {
	return &WsRouter{hub: hub}
}

func (h WsRouter) InstallRouter(app *fiber.App) {
	app.Use("/ws", controllers.RequireWebSocketUpgrade)
	app.Get("/ws/:userID", controllers.HandleNotificationSocket(h.hub))
}

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/adeelqureshi/taleempay/app/controllers"
)

type ApiRouter struct {
	payments *controllers.PaymentController
}

func NewApiRouter(payments *controllers.PaymentController) *ApiRouter {
	return &ApiRouter{payments: payments}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	payments := api.Group("/v1/payments")
	payments.Get("/plans", h.payments.HandleGetPlans)
	payments.Post("/create", h.payments.HandleCreateCheckout)
	payments.Post("/verify", h.payments.HandleVerifyPayment)
	// Redirect gateways call back via browser POST or GET; the hosted
	// gateway posts JSON. One route handles all of them.
	payments.Post("/webhook/:gateway", h.payments.HandleWebhook)
	payments.Get("/webhook/:gateway", h.payments.HandleWebhook)
}

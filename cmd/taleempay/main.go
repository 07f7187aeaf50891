package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/adeelqureshi/taleempay/app/controllers"
	"github.com/adeelqureshi/taleempay/internal/pkg/cache"
	"github.com/adeelqureshi/taleempay/internal/pkg/database"
	"github.com/adeelqureshi/taleempay/internal/pkg/env"
	"github.com/adeelqureshi/taleempay/internal/pkg/ledger"
	"github.com/adeelqureshi/taleempay/internal/pkg/notify"
	"github.com/adeelqureshi/taleempay/internal/pkg/payment"
	"github.com/adeelqureshi/taleempay/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	registry := payment.NewRegistryFromEnv()
	log.Printf("payment gateways configured: %v", registry.Names())

	orchestrator := payment.NewOrchestrator(registry, env.GetEnv("FRONTEND_URL", "http://localhost:3000"))
	subscriptionLedger := ledger.NewFromDB(database.GetDB())
	hub := notify.NewHub()
	payments := controllers.NewPaymentController(orchestrator, registry, subscriptionLedger, hub)

	app := fiber.New(fiber.Config{
		AppName: "TaleemPay",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app, router.NewApiRouter(payments), router.NewWsRouter(hub))

	return app
}

package handler

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ibrahimkeyboad/payledger/internal/adapter/middleware"
)

type Handlers struct {
	Accounts *AccountHandler
	Payments *PaymentHandler
	// Ready backs GET /health. Nil means always healthy.
	Ready func(ctx context.Context) error
}

// NewApp builds the fiber app with middleware and all routes registered.
func NewApp(h Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New())

	app.Get("/health", health(h.Ready))

	app.Post("/account", h.Accounts.CreateAccounts)
	app.Get("/account/:id", h.Accounts.GetAccount)
	app.Post("/payment", h.Payments.MakePayment)

	return app
}

func health(ready func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ready != nil {
			if err := ready(c.UserContext()); err != nil {
				return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	v1 "tgfunnel/api/v1"
)

// publicCORSConfig is the CORS setup shared by the public tracking endpoints,
// which are called cross-origin from arbitrary landing pages.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, User-Agent",
}

// MountAppRoutes registers all HTTP routes on the server.
func MountAppRoutes(app *fiber.App, handler *v1.Handler) {
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public tracking surface.
	tracking := app.Group("", cors.New(publicCORSConfig))
	tracking.Post("/api/v1/clicks", handler.CreateClick)
	tracking.Get("/t/:link", handler.TrackRedirect)
	tracking.Post("/api/v1/subscriptions", handler.RecordSubscription)

	// Reporting and statistics.
	app.Post("/api/v1/reports", handler.SubmitReport)
	app.Get("/api/v1/projects/:id/reports", handler.ListReportStatuses)
	app.Get("/api/v1/projects/:id/stats", handler.GetProjectStats)
}

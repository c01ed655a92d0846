package routes

import (
	"github.com/gofiber/fiber/v2"

	"pointsmall-backend/controllers"
	"pointsmall-backend/idempotency"
	"pointsmall-backend/middlewares"
)

// Register wires all HTTP routes. Every mutating endpoint sits behind the
// idempotency guard; its path must therefore appear in the canonical
// operation table or the guard fails loudly.
func Register(app *fiber.App, svc *idempotency.Service, store idempotency.Store) {
	api := app.Group("/api/v4")

	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard runs before any handler transaction, so records
	// survive a rolled-back business write.
	protected.Use(middlewares.Idempotency(svc))

	// Lottery
	protected.Post("/lottery/draw", controllers.Draw)
	protected.Post("/activities/:code/draw", controllers.Draw)

	// Points
	protected.Post("/points/transfer", controllers.TransferPoints)

	// Admin
	admin := protected.Group("/admin", middlewares.RequireAdmin())
	admin.Post("/points/adjust", controllers.AdjustPoints)
	admin.Post("/idempotency/cleanup", controllers.CleanupIdempotency(svc))
	admin.Get("/idempotency/:key", controllers.InspectIdempotency(store))
}

package controllers

import (
	"github.com/gofiber/fiber/v2"

	"pointsmall-backend/idempotency"
)

// CleanupIdempotency triggers the lifecycle sweep on demand. The same
// operation runs on a timer in main; this endpoint exists for external
// schedulers (cron hitting the API) and operators.
func CleanupIdempotency(svc *idempotency.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// CleanupExpired runs the timeout sweep first, so one call does
		// the whole cycle.
		deleted, err := svc.CleanupExpired()
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"deleted": deleted,
		})
	}
}

// InspectIdempotency returns the stored record for a key, for audit
// dashboards. Sensitive response fields were already redacted at
// snapshot time.
func InspectIdempotency(store idempotency.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		rec, err := store.Find(key)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no record for key")
		}
		return c.JSON(rec)
	}
}

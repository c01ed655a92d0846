package middlewares

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"pointsmall-backend/idempotency"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Structured idempotency errors (conflicts, configuration defects)
	if ie, ok := idempotency.AsError(err); ok {
		if ie.Kind == idempotency.KindOperationNotMapped {
			// Misconfiguration, not caller error: keep the detail in the
			// server log, not the response body.
			log.Printf("configuration defect: %v", ie)
			return c.Status(ie.Status).JSON(fiber.Map{
				"message": "server misconfiguration",
				"kind":    ie.Kind,
			})
		}
		if ie.RetryAfter > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ie.RetryAfter.Seconds())))
		}
		return c.Status(ie.Status).JSON(fiber.Map{
			"message": ie.Message,
			"kind":    ie.Kind,
		})
	}

	// 2) Fiber errors (use their status code + message)
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// 3) Validation errors (422 + per-field info)
	if ve, ok := err.(validator.ValidationErrors); ok {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// 4) Unknown errors (500)
	log.Printf("internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}

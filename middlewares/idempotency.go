package middlewares

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pointsmall-backend/idempotency"
)

// BusinessEventIDKey is the Locals slot a write handler fills with the id
// of the entity it created (order id, draw record id, ...); the
// idempotency middleware persists it with the response snapshot.
const BusinessEventIDKey = "businessEventID"

// Idempotency guards mutating endpoints with the orchestrator: it creates
// or resolves the record for the client-supplied Idempotency-Key before
// the handler runs, replays stored results without re-executing, and
// marks the record completed/failed afterwards.
func Idempotency(svc *idempotency.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Idempotency-Key too long"})
		}

		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "auth context missing"})
		}

		var body map[string]any
		if raw := c.Body(); len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON body"})
			}
		}

		desc := idempotency.RequestDescriptor{
			UserID:     userID,
			HTTPMethod: method,
			APIPath:    c.Path(),
			Query:      c.Queries(),
			Body:       body,
		}

		result, err := svc.GetOrCreateRequest(key, desc)
		if err != nil {
			// Conflicts and configuration defects go to the central
			// error handler; the business handler never runs.
			return err
		}

		if !result.ShouldProcess {
			// Replay: stored snapshot and status code, verbatim.
			c.Set("X-Idempotent-Replay", "true")
			replayStatus := result.Request.ResponseStatus
			if replayStatus == 0 {
				replayStatus = fiber.StatusOK
			}
			return c.Status(replayStatus).JSON(result.Response)
		}

		if err := c.Next(); err != nil {
			if markErr := svc.MarkAsFailed(key, err.Error()); markErr != nil {
				log.Printf("[idempotency] MarkAsFailed for key %s: %v", key, markErr)
			}
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusBadRequest {
			if markErr := svc.MarkAsFailed(key, fmt.Sprintf("handler returned status %d", status)); markErr != nil {
				log.Printf("[idempotency] MarkAsFailed for key %s: %v", key, markErr)
			}
			return nil
		}

		var response map[string]any
		if raw := c.Response().Body(); len(raw) > 0 {
			// Non-JSON handler output is stored as an opaque success.
			_ = json.Unmarshal(raw, &response)
		}
		eventID, _ := c.Locals(BusinessEventIDKey).(string)
		if markErr := svc.MarkAsCompleted(key, eventID, response, status); markErr != nil {
			log.Printf("[idempotency] MarkAsCompleted for key %s: %v", key, markErr)
		}

		return nil
	}
}

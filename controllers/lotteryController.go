package controllers

import (
	"math/rand"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pointsmall-backend/middlewares"
)

// DrawRequest is the payload for a lottery draw on one activity.
type DrawRequest struct {
	ActivityCode string `json:"activity_code" validate:"required"`
	Amount       int    `json:"amount" validate:"gt=0"`
}

// prizes is a placeholder pool; the real draw engine with stock and
// guaranteed-win logic lives behind the lottery service.
var prizes = []struct {
	Code   string
	Weight int
}{
	{"WIN_SMALL", 60},
	{"WIN_BIG", 10},
	{"LOSE", 30},
}

// Draw executes one lottery draw. Runs behind the idempotency middleware,
// so a retried draw with the same key replays the original result instead
// of charging the user twice.
func Draw(c *fiber.Ctx) error {
	var req DrawRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	total := 0
	for _, p := range prizes {
		total += p.Weight
	}
	roll := rand.Intn(total)
	code := prizes[len(prizes)-1].Code
	for _, p := range prizes {
		if roll < p.Weight {
			code = p.Code
			break
		}
		roll -= p.Weight
	}

	drawID := uuid.NewString()
	c.Locals(middlewares.BusinessEventIDKey, drawID)

	return c.JSON(fiber.Map{
		"success":       true,
		"code":          code,
		"draw_id":       drawID,
		"activity_code": req.ActivityCode,
		"cost_points":   req.Amount,
	})
}

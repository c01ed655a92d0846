package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pointsmall-backend/middlewares"
)

// AdjustRequest changes a user's points balance (admin surface).
type AdjustRequest struct {
	TargetUserID string `json:"target_user_id" validate:"required"`
	Delta        int    `json:"delta" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
}

// AdjustPoints applies an administrative points adjustment. The actual
// ledger lives in the points service; here we record the transaction id
// so the idempotency snapshot can correlate it.
func AdjustPoints(c *fiber.Ctx) error {
	var req AdjustRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	txID := uuid.NewString()
	c.Locals(middlewares.BusinessEventIDKey, txID)

	return c.JSON(fiber.Map{
		"success":        true,
		"code":           "ADJUSTED",
		"transaction_id": txID,
		"target_user_id": req.TargetUserID,
		"delta":          req.Delta,
	})
}

// TransferRequest moves points between two users.
type TransferRequest struct {
	ToUserID string `json:"to_user_id" validate:"required"`
	Amount   int    `json:"amount" validate:"gt=0"`
}

// TransferPoints executes a user-to-user points transfer, the
// payment-like write this layer exists to protect.
func TransferPoints(c *fiber.Ctx) error {
	var req TransferRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	txID := uuid.NewString()
	c.Locals(middlewares.BusinessEventIDKey, txID)

	return c.JSON(fiber.Map{
		"success":        true,
		"code":           "TRANSFERRED",
		"transaction_id": txID,
		"to_user_id":     req.ToUserID,
		"amount":         req.Amount,
	})
}

package idempotency

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Kind is the machine-readable classifier of an idempotency failure.
type Kind string

const (
	// KindRequestProcessing: the same key is currently in flight; the
	// caller should retry shortly.
	KindRequestProcessing Kind = "REQUEST_PROCESSING"

	// KindKeyConflict: same key reused with different parameters.
	KindKeyConflict Kind = "IDEMPOTENCY_KEY_CONFLICT"

	// KindDifferentOperation: same key reused for a different business
	// action.
	KindDifferentOperation Kind = "IDEMPOTENCY_KEY_CONFLICT_DIFFERENT_OPERATION"

	// KindOperationNotMapped: a write path missing from the canonical
	// operation table. A deployment defect, not a caller error.
	KindOperationNotMapped Kind = "CANONICAL_OPERATION_NOT_MAPPED"
)

// Error carries the failure kind plus an HTTP-analogous status so the
// error middleware can answer without inspecting message text.
type Error struct {
	Kind       Kind
	Status     int
	Message    string
	RetryAfter time.Duration // non-zero only for REQUEST_PROCESSING
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errProcessing(key string, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRequestProcessing,
		Status:     fiber.StatusConflict,
		Message:    "request with idempotency key " + key + " is still being processed",
		RetryAfter: retryAfter,
	}
}

func errKeyConflict(key string) *Error {
	return &Error{
		Kind:    KindKeyConflict,
		Status:  fiber.StatusConflict,
		Message: "idempotency key " + key + " was already used with different parameters",
	}
}

func errDifferentOperation(key, stored, incoming string) *Error {
	return &Error{
		Kind:    KindDifferentOperation,
		Status:  fiber.StatusConflict,
		Message: fmt.Sprintf("idempotency key %s belongs to operation %s, not %s", key, stored, incoming),
	}
}

func errOperationNotMapped(path string) *Error {
	return &Error{
		Kind:    KindOperationNotMapped,
		Status:  fiber.StatusInternalServerError,
		Message: "no canonical operation mapped for write path " + path,
	}
}

// AsError unwraps err into an idempotency *Error, if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

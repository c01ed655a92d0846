package models

import (
	"time"

	"gorm.io/datatypes"
)

// RequestStatus is the state of an idempotent write attempt.
type RequestStatus string

const (
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// IdempotencyRequest is the persisted state machine instance for one
// idempotency key. Exactly one row exists per key (unique index); the
// orchestrator is the only writer.
type IdempotencyRequest struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	IdempotencyKey string `json:"idempotency_key" gorm:"size:128;uniqueIndex"`

	// Literal request coordinates as received, kept for audit. Equality
	// decisions use the canonical operation recomputed from APIPath.
	APIPath    string `json:"api_path" gorm:"size:255"`
	HTTPMethod string `json:"http_method" gorm:"size:10"`

	// RequestHash is immutable once set by the first successful creation.
	RequestHash   string            `json:"request_hash" gorm:"size:64"`
	RequestParams datatypes.JSONMap `json:"request_params"`
	UserID        string            `json:"user_id" gorm:"size:128;index"`

	Status RequestStatus `json:"status" gorm:"size:16;index"`

	// Correlation id of the downstream business entity (order id, draw
	// record id, ...), set at completion.
	BusinessEventID  string            `json:"business_event_id" gorm:"size:128"`
	ResponseSnapshot datatypes.JSONMap `json:"response_snapshot"`
	ResponseCode     string            `json:"response_code" gorm:"size:32"`
	ResponseStatus   int               `json:"response_status"` // HTTP status of the original completion, replayed verbatim

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"index"`
}

func (IdempotencyRequest) TableName() string {
	return "idempotency_requests"
}

// IsTerminal reports whether the record may be cleaned up once expired.
// A processing row must first be timed out by the sweeper.
func (r *IdempotencyRequest) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

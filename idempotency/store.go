package idempotency

import (
	"errors"
	"time"

	"pointsmall-backend/models"
)

// Sentinel errors shared by all store implementations.
var (
	ErrRecordNotFound = errors.New("idempotency record not found")
	ErrDuplicateKey   = errors.New("idempotency key already exists")
)

// Tx is the unit-of-work view of the record store. FindForUpdate must hold
// an exclusive lock on the row (or the insertion gap) until the
// surrounding transaction ends; that lock is what serializes concurrent
// first-seen requests on the same key.
type Tx interface {
	// FindForUpdate returns the record for key under an exclusive row
	// lock, or ErrRecordNotFound.
	FindForUpdate(key string) (*models.IdempotencyRequest, error)

	// Create inserts a fresh record. A unique-constraint violation is
	// reported as ErrDuplicateKey so the caller can fall back to
	// FindForUpdate (insert-then-handle-conflict pattern).
	Create(rec *models.IdempotencyRequest) error

	// Update applies fields to the record identified by key.
	Update(key string, fields map[string]any) error
}

// Store is the transactional record store consumed by the Service. The
// postgres adapter lives in the database package; a memory adapter with
// the same semantics backs tests and DB-less development.
type Store interface {
	// Transaction runs fn inside one transactional unit of work. Row
	// locks taken via Tx.FindForUpdate are held until fn returns.
	Transaction(fn func(tx Tx) error) error

	// UpdateIfStatus applies fields to the record only when its current
	// status matches from, reporting whether a row was touched. Keeps a
	// late MarkAsCompleted from resurrecting a timed-out record.
	UpdateIfStatus(key string, from models.RequestStatus, fields map[string]any) (bool, error)

	// Find returns the record for key without locking, or
	// ErrRecordNotFound. Used by audit/replay tooling and tests.
	Find(key string) (*models.IdempotencyRequest, error)

	// FailTimedOut bulk-moves processing records created before olderThan
	// to failed with the given snapshot, returning the count affected.
	FailTimedOut(olderThan time.Time, snapshot map[string]any, completedAt time.Time) (int64, error)

	// DeleteExpired removes terminal records whose expires_at lies before
	// now, returning the count deleted. Processing rows are never touched.
	DeleteExpired(now time.Time) (int64, error)
}

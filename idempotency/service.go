package idempotency

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"pointsmall-backend/models"
)

var validate = validator.New()

// Service is the idempotency orchestrator: it owns the record state
// machine and is the sole writer of record state. Callers run their
// business logic only when GetOrCreateRequest says so, then report back
// via MarkAsCompleted or MarkAsFailed.
type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewService validates cfg and builds a Service on top of store.
func NewService(store Store, cfg Config) (*Service, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid idempotency config: %w", err)
	}
	return &Service{store: store, cfg: cfg, now: time.Now}, nil
}

// Result is the outcome of GetOrCreateRequest. When ShouldProcess is
// false the stored Response must be returned to the client verbatim.
type Result struct {
	IsNew         bool
	ShouldProcess bool
	Request       *models.IdempotencyRequest
	Response      map[string]any
}

// GetOrCreateRequest resolves the fate of one idempotency key under a
// single transactional, row-locked unit of work:
//
//	absent            -> create processing record, caller executes
//	completed + match -> replay stored snapshot, no mutation
//	processing        -> REQUEST_PROCESSING conflict with retry hint
//	failed + match    -> flip back to processing, caller retries
//
// A stored record whose canonical operation or request hash differs from
// the incoming request is a hard caller error, never silently merged.
func (s *Service) GetOrCreateRequest(key string, req RequestDescriptor) (*Result, error) {
	hash, err := Fingerprint(req)
	if err != nil {
		return nil, err
	}
	incomingOp, err := ResolveOperation(req.APIPath)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.store.Transaction(func(tx Tx) error {
		existing, err := tx.FindForUpdate(key)
		if errors.Is(err, ErrRecordNotFound) {
			created, err := s.createRecord(tx, key, req, hash)
			if err != nil {
				return err
			}
			if created != nil {
				result = &Result{IsNew: true, ShouldProcess: true, Request: created}
				return nil
			}
			// Lost the insert race: the winner's row is committed, so a
			// locked re-read must find it now.
			existing, err = tx.FindForUpdate(key)
			if err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		storedOp, err := ResolveOperation(existing.APIPath)
		if err != nil {
			return err
		}
		if storedOp != incomingOp {
			return errDifferentOperation(key, storedOp, incomingOp)
		}
		if existing.RequestHash != hash {
			return errKeyConflict(key)
		}

		switch existing.Status {
		case models.StatusCompleted:
			// Replay verbatim; no mutation, so the original completion
			// stays intact for audit.
			result = &Result{
				IsNew:         false,
				ShouldProcess: false,
				Request:       existing,
				Response:      map[string]any(existing.ResponseSnapshot),
			}
			return nil
		case models.StatusProcessing:
			return errProcessing(key, s.cfg.RetryAfter)
		case models.StatusFailed:
			// Sanctioned retry path: same key, same parameters, previous
			// attempt failed.
			retryAt := s.now()
			if err := tx.Update(key, map[string]any{
				"status":       models.StatusProcessing,
				"completed_at": nil,
				"created_at":   retryAt,
			}); err != nil {
				return err
			}
			existing.Status = models.StatusProcessing
			existing.CompletedAt = nil
			existing.CreatedAt = retryAt
			result = &Result{IsNew: false, ShouldProcess: true, Request: existing}
			return nil
		default:
			return fmt.Errorf("idempotency record %s has unknown status %q", key, existing.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createRecord inserts the processing row for a first-seen key. Returns
// (nil, nil) when a concurrent creator won the unique-index race.
func (s *Service) createRecord(tx Tx, key string, req RequestDescriptor, hash string) (*models.IdempotencyRequest, error) {
	now := s.now()
	rec := &models.IdempotencyRequest{
		IdempotencyKey: key,
		APIPath:        req.APIPath,
		HTTPMethod:     req.HTTPMethod,
		RequestHash:    hash,
		RequestParams:  datatypes.JSONMap(req.Body),
		UserID:         req.UserID,
		Status:         models.StatusProcessing,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.TTL),
	}
	if err := tx.Create(rec); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// MarkAsCompleted records the successful business outcome for key,
// including the HTTP status the original completion answered with (0
// defaults to 200) so replays are byte-faithful. The update is
// conditional on status=processing so a record the sweeper has already
// timed out is not resurrected as completed.
func (s *Service) MarkAsCompleted(key, businessEventID string, response map[string]any, httpStatus int) error {
	if httpStatus == 0 {
		httpStatus = fiber.StatusOK
	}
	snapshot := s.BuildSnapshot(response, key, businessEventID)
	now := s.now()
	updated, err := s.store.UpdateIfStatus(key, models.StatusProcessing, map[string]any{
		"status":            models.StatusCompleted,
		"business_event_id": businessEventID,
		"response_snapshot": datatypes.JSONMap(snapshot),
		"response_code":     extractResponseCode(response),
		"response_status":   httpStatus,
		"completed_at":      now,
	})
	if err != nil {
		return err
	}
	if !updated {
		log.Printf("[idempotency] MarkAsCompleted for key %s skipped: record no longer processing", key)
	}
	return nil
}

// MarkAsFailed records a business failure for key, opening the retry
// path. Conditional on status=processing for the same reason as
// MarkAsCompleted.
func (s *Service) MarkAsFailed(key, errMessage string) error {
	now := s.now()
	updated, err := s.store.UpdateIfStatus(key, models.StatusProcessing, map[string]any{
		"status":            models.StatusFailed,
		"response_snapshot": datatypes.JSONMap{"error": errMessage},
		"response_code":     "FAILED",
		"completed_at":      now,
	})
	if err != nil {
		return err
	}
	if !updated {
		log.Printf("[idempotency] MarkAsFailed for key %s skipped: record no longer processing", key)
	}
	return nil
}

// AutoFailProcessingTimeout force-fails every processing record older
// than the configured timeout and returns how many were flipped. Runs
// before cleanup so abandoned in-flight rows become deletable instead of
// lingering forever.
func (s *Service) AutoFailProcessingTimeout() (int64, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg.ProcessingTimeout)
	snapshot := map[string]any{
		"error": fmt.Sprintf("processing timed out after %s", s.cfg.ProcessingTimeout),
	}
	count, err := s.store.FailTimedOut(cutoff, snapshot, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("[idempotency] auto-failed %d timed-out processing record(s)", count)
	}
	return count, nil
}

// CleanupExpired sweeps the record table: first times out stale
// processing rows, then deletes expired terminal rows. Returns the number
// deleted. Never deletes a processing record directly.
func (s *Service) CleanupExpired() (int64, error) {
	if _, err := s.AutoFailProcessingTimeout(); err != nil {
		return 0, err
	}
	count, err := s.store.DeleteExpired(s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("[idempotency] cleaned up %d expired idempotency record(s)", count)
	}
	return count, nil
}

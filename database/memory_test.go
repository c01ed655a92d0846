package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"pointsmall-backend/idempotency"
	"pointsmall-backend/models"
)

func seedRecord(t *testing.T, s *MemoryStore, key string, status models.RequestStatus, createdAt, expiresAt time.Time) {
	t.Helper()
	err := s.Transaction(func(tx idempotency.Tx) error {
		return tx.Create(&models.IdempotencyRequest{
			IdempotencyKey: key,
			APIPath:        "/api/v4/lottery/draw",
			HTTPMethod:     "POST",
			RequestHash:    "hash-" + key,
			UserID:         "user-1",
			Status:         status,
			CreatedAt:      createdAt,
			ExpiresAt:      expiresAt,
		})
	})
	require.NoError(t, err)
}

func TestMemoryStoreDuplicateCreate(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedRecord(t, s, "k1", models.StatusProcessing, now, now.Add(time.Hour))

	err := s.Transaction(func(tx idempotency.Tx) error {
		return tx.Create(&models.IdempotencyRequest{IdempotencyKey: "k1"})
	})
	assert.ErrorIs(t, err, idempotency.ErrDuplicateKey)
}

func TestMemoryStoreUpdateIfStatus(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedRecord(t, s, "k1", models.StatusProcessing, now, now.Add(time.Hour))

	ok, err := s.UpdateIfStatus("k1", models.StatusProcessing, map[string]any{
		"status":            models.StatusCompleted,
		"response_snapshot": datatypes.JSONMap{"success": true},
		"response_code":     "SUCCESS",
		"completed_at":      now,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// Status guard: a second conditional update misses.
	ok, err = s.UpdateIfStatus("k1", models.StatusProcessing, map[string]any{
		"status": models.StatusFailed,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := s.Find("k1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

func TestMemoryStoreSweeps(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()

	seedRecord(t, s, "stale-processing", models.StatusProcessing, now.Add(-2*time.Minute), now.Add(-time.Minute))
	seedRecord(t, s, "fresh-processing", models.StatusProcessing, now, now.Add(time.Hour))
	seedRecord(t, s, "expired-done", models.StatusCompleted, now.Add(-2*time.Hour), now.Add(-time.Hour))

	// Expired processing rows survive deletion.
	deleted, err := s.DeleteExpired(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted) // only expired-done
	_, err = s.Find("stale-processing")
	require.NoError(t, err)

	failed, err := s.FailTimedOut(now.Add(-time.Minute), map[string]any{"error": "timeout"}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, failed)

	rec, err := s.Find("stale-processing")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)

	deleted, err = s.DeleteExpired(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted) // now the timed-out row goes
}

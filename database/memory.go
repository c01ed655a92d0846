package database

import (
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"pointsmall-backend/idempotency"
	"pointsmall-backend/models"
)

// MemoryStore is an in-process idempotency.Store with the same contract
// as GormStore. A single mutex serializes transactions, which is a
// coarse but correct stand-in for per-row locks: concurrent
// GetOrCreateRequest calls on the same key observe a total order. Used by
// the test suites and for DB-less development runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.IdempotencyRequest
	nextID  uint
}

var _ idempotency.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.IdempotencyRequest)}
}

type memoryTx struct {
	s *MemoryStore
}

func (t memoryTx) FindForUpdate(key string) (*models.IdempotencyRequest, error) {
	rec, ok := t.s.records[key]
	if !ok {
		return nil, idempotency.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (t memoryTx) Create(rec *models.IdempotencyRequest) error {
	if _, ok := t.s.records[rec.IdempotencyKey]; ok {
		return idempotency.ErrDuplicateKey
	}
	t.s.nextID++
	rec.ID = t.s.nextID
	cp := *rec
	t.s.records[rec.IdempotencyKey] = &cp
	return nil
}

func (t memoryTx) Update(key string, fields map[string]any) error {
	rec, ok := t.s.records[key]
	if !ok {
		return idempotency.ErrRecordNotFound
	}
	applyFields(rec, fields)
	return nil
}

func (s *MemoryStore) Transaction(fn func(tx idempotency.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(memoryTx{s: s})
}

func (s *MemoryStore) UpdateIfStatus(key string, from models.RequestStatus, fields map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok || rec.Status != from {
		return false, nil
	}
	applyFields(rec, fields)
	return true, nil
}

func (s *MemoryStore) Find(key string) (*models.IdempotencyRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, idempotency.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) FailTimedOut(olderThan time.Time, snapshot map[string]any, completedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, rec := range s.records {
		if rec.Status == models.StatusProcessing && rec.CreatedAt.Before(olderThan) {
			rec.Status = models.StatusFailed
			rec.ResponseSnapshot = datatypes.JSONMap(snapshot)
			rec.ResponseCode = "TIMEOUT"
			at := completedAt
			rec.CompletedAt = &at
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteExpired(now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for key, rec := range s.records {
		if rec.ExpiresAt.Before(now) && rec.IsTerminal() {
			delete(s.records, key)
			count++
		}
	}
	return count, nil
}

// applyFields mirrors the snake_case update maps the service sends to the
// SQL store onto the in-memory struct.
func applyFields(rec *models.IdempotencyRequest, fields map[string]any) {
	for col, v := range fields {
		switch strings.ToLower(col) {
		case "status":
			rec.Status = v.(models.RequestStatus)
		case "business_event_id":
			rec.BusinessEventID = v.(string)
		case "response_snapshot":
			rec.ResponseSnapshot = v.(datatypes.JSONMap)
		case "response_code":
			rec.ResponseCode = v.(string)
		case "response_status":
			rec.ResponseStatus = v.(int)
		case "completed_at":
			if v == nil {
				rec.CompletedAt = nil
			} else {
				at := v.(time.Time)
				rec.CompletedAt = &at
			}
		case "created_at":
			rec.CreatedAt = v.(time.Time)
		case "expires_at":
			rec.ExpiresAt = v.(time.Time)
		}
	}
}

package database

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pointsmall-backend/idempotency"
	"pointsmall-backend/models"
)

// GormStore is the postgres-backed idempotency record store. Row locking
// uses SELECT ... FOR UPDATE inside the GORM transaction; the unique index
// on idempotency_key backs the insert-race fallback.
type GormStore struct {
	db *gorm.DB
}

var _ idempotency.Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

type gormTx struct {
	tx *gorm.DB
}

func (t gormTx) FindForUpdate(key string) (*models.IdempotencyRequest, error) {
	var rec models.IdempotencyRequest
	err := t.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("idempotency_key = ?", key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, idempotency.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t gormTx) Create(rec *models.IdempotencyRequest) error {
	// ON CONFLICT DO NOTHING instead of a raw insert: a unique violation
	// would abort the whole Postgres transaction (SQLSTATE 25P02) and the
	// fallback re-read after a lost race needs it still usable.
	res := t.tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return idempotency.ErrDuplicateKey
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return idempotency.ErrDuplicateKey
	}
	return nil
}

func (t gormTx) Update(key string, fields map[string]any) error {
	return t.tx.Model(&models.IdempotencyRequest{}).
		Where("idempotency_key = ?", key).
		Updates(fields).Error
}

func (s *GormStore) Transaction(fn func(tx idempotency.Tx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(gormTx{tx: tx})
	})
}

func (s *GormStore) UpdateIfStatus(key string, from models.RequestStatus, fields map[string]any) (bool, error) {
	res := s.db.Model(&models.IdempotencyRequest{}).
		Where("idempotency_key = ? AND status = ?", key, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Find(key string) (*models.IdempotencyRequest, error) {
	var rec models.IdempotencyRequest
	err := s.db.Where("idempotency_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, idempotency.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) FailTimedOut(olderThan time.Time, snapshot map[string]any, completedAt time.Time) (int64, error) {
	res := s.db.Model(&models.IdempotencyRequest{}).
		Where("status = ? AND created_at < ?", models.StatusProcessing, olderThan).
		Updates(map[string]any{
			"status":            models.StatusFailed,
			"response_snapshot": datatypes.JSONMap(snapshot),
			"response_code":     "TIMEOUT",
			"completed_at":      completedAt,
		})
	return res.RowsAffected, res.Error
}

func (s *GormStore) DeleteExpired(now time.Time) (int64, error) {
	res := s.db.
		Where("expires_at < ? AND status IN ?", now, []models.RequestStatus{models.StatusCompleted, models.StatusFailed}).
		Delete(&models.IdempotencyRequest{})
	return res.RowsAffected, res.Error
}

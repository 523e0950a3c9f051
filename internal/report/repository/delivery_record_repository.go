package repository

import (
	"time"

	"gorm.io/gorm"

	"statuspulse-backend/internal/report/domain"
)

// DeliveryRecordRepository is the append-only store behind the idempotency
// guard. FindRecent is its read side; Save is called exactly once per
// successful delivery, as the orchestrator's final step.
type DeliveryRecordRepository interface {
	// FindRecent returns the newest delivery of the same payload hash for
	// the project since the cutoff, or nil.
	FindRecent(projectID, payloadHash string, since time.Time) (*domain.DeliveryRecord, error)
	// FindLatest returns the project's most recent delivery, or nil.
	FindLatest(projectID string) (*domain.DeliveryRecord, error)
	// Save persists a new delivery record.
	Save(record *domain.DeliveryRecord) error
}

// gormDeliveryRecordRepository implements DeliveryRecordRepository using GORM
type gormDeliveryRecordRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRecordRepository creates a new GORM-based DeliveryRecordRepository
func NewGormDeliveryRecordRepository(db *gorm.DB) DeliveryRecordRepository {
	return &gormDeliveryRecordRepository{db: db}
}

func (r *gormDeliveryRecordRepository) FindRecent(projectID, payloadHash string, since time.Time) (*domain.DeliveryRecord, error) {
	var record domain.DeliveryRecord
	err := r.db.Where("project_id = ? AND payload_hash = ? AND delivered_at >= ?", projectID, payloadHash, since).
		Order("delivered_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *gormDeliveryRecordRepository) FindLatest(projectID string) (*domain.DeliveryRecord, error) {
	var record domain.DeliveryRecord
	err := r.db.Where("project_id = ?", projectID).
		Order("delivered_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *gormDeliveryRecordRepository) Save(record *domain.DeliveryRecord) error {
	return r.db.Create(record).Error
}

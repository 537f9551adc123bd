package repositories

import (
	"context"

	"fxmatch/internal/models"

	"gorm.io/gorm"
)

// MatchRecordRepository persists the settlement journal.
type MatchRecordRepository struct {
	db *gorm.DB
}

// NewMatchRecordRepository creates a journal repository.
func NewMatchRecordRepository(db *gorm.DB) *MatchRecordRepository {
	return &MatchRecordRepository{db: db}
}

// SaveMatch appends a match record to the journal.
func (r *MatchRecordRepository) SaveMatch(ctx context.Context, record *models.MatchRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ByRequestID returns every journal entry for one request, oldest first.
func (r *MatchRecordRepository) ByRequestID(ctx context.Context, requestID string) ([]models.MatchRecord, error) {
	var records []models.MatchRecord
	err := r.db.WithContext(ctx).
		Where("request_id = ? OR matched_request_id = ?", requestID, requestID).
		Order("id asc").
		Find(&records).Error
	return records, err
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/m-tancredi/plai-rag/internal/model"
)

// ProcessingLogRepository appends and lists pipeline log entries. Entries are
// append-only; there is deliberately no update or delete.
type ProcessingLogRepository struct {
	db *gorm.DB
}

func NewProcessingLogRepository(db *gorm.DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{db: db}
}

func (r *ProcessingLogRepository) Append(ctx context.Context, entry *model.ProcessingLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ProcessingLogRepository) FindByDocumentID(ctx context.Context, docID uuid.UUID, limit, offset int) ([]model.ProcessingLogEntry, int64, error) {
	var entries []model.ProcessingLogEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ProcessingLogEntry{}).
		Where("document_id = ?", docID)

	query.Count(&total)
	err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

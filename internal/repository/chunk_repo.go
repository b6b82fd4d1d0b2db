package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/m-tancredi/plai-rag/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&chunks, 100).Error
}

func (r *ChunkRepository) FindByDocumentID(ctx context.Context, docID uuid.UUID, limit, offset int) ([]model.Chunk, int64, error) {
	var chunks []model.Chunk
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Chunk{}).
		Where("document_id = ?", docID)

	query.Count(&total)
	err := query.Order("chunk_index ASC").Limit(limit).Offset(offset).Find(&chunks).Error
	return chunks, total, err
}

func (r *ChunkRepository) CountByDocumentID(ctx context.Context, docID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Chunk{}).
		Where("document_id = ?", docID).
		Count(&count).Error
	return count, err
}

// DeleteByDocumentID hard-deletes all chunk rows of a document. Reprocessing
// relies on this purge so duplicate chunk indices never exist.
func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, docID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("document_id = ?", docID).
		Delete(&model.Chunk{}).Error
}

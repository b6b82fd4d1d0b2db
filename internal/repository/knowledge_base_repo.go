package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/m-tancredi/plai-rag/internal/model"
)

type KnowledgeBaseRepository struct {
	db *gorm.DB
}

func NewKnowledgeBaseRepository(db *gorm.DB) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: db}
}

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *model.KnowledgeBase) error {
	return r.db.WithContext(ctx).Create(kb).Error
}

func (r *KnowledgeBaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	if err := r.db.WithContext(ctx).First(&kb, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]model.KnowledgeBase, int64, error) {
	var kbs []model.KnowledgeBase
	var total int64

	query := r.db.WithContext(ctx).Model(&model.KnowledgeBase{}).
		Where("owner_id = ?", ownerID)

	query.Count(&total)
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&kbs).Error
	return kbs, total, err
}

func (r *KnowledgeBaseRepository) Update(ctx context.Context, kb *model.KnowledgeBase) error {
	return r.db.WithContext(ctx).Save(kb).Error
}

func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("knowledge_base_id = ?", id).
			Delete(&model.KnowledgeBaseDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.KnowledgeBase{}, "id = ?", id).Error
	})
}

func (r *KnowledgeBaseRepository) AddDocument(ctx context.Context, kbID, docID uuid.UUID) error {
	membership := &model.KnowledgeBaseDocument{
		KnowledgeBaseID: kbID,
		DocumentID:      docID,
	}
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *KnowledgeBaseRepository) RemoveDocument(ctx context.Context, kbID, docID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("knowledge_base_id = ? AND document_id = ?", kbID, docID).
		Delete(&model.KnowledgeBaseDocument{}).Error
}

// RemoveDocumentEverywhere drops the document from every knowledge base; part
// of the document delete cascade.
func (r *KnowledgeBaseRepository) RemoveDocumentEverywhere(ctx context.Context, docID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("document_id = ?", docID).
		Delete(&model.KnowledgeBaseDocument{}).Error
}

// Stats recomputes the aggregate document and chunk counts for a knowledge
// base; the counts are derived, never stored.
func (r *KnowledgeBaseRepository) Stats(ctx context.Context, kbID uuid.UUID) (docCount, chunkCount int64, err error) {
	err = r.db.WithContext(ctx).Model(&model.KnowledgeBaseDocument{}).
		Where("knowledge_base_id = ?", kbID).
		Count(&docCount).Error
	if err != nil {
		return 0, 0, err
	}

	err = r.db.WithContext(ctx).Model(&model.Chunk{}).
		Joins("JOIN rag_knowledge_base_documents kbd ON kbd.document_id = rag_chunks.document_id").
		Where("kbd.knowledge_base_id = ?", kbID).
		Count(&chunkCount).Error
	return docCount, chunkCount, err
}

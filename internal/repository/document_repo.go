package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/m-tancredi/plai-rag/internal/model"
)

// ErrAlreadyClaimed is returned when a processing pickup finds the document
// not in the uploaded state; the second concurrent pickup aborts as a no-op.
var ErrAlreadyClaimed = errors.New("document already claimed for processing")

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, status string, limit, offset int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("owner_id = ?", ownerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	query.Count(&total)
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&docs).Error
	return docs, total, err
}

func (r *DocumentRepository) Update(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, "id = ?", id).Error
}

// ClaimForProcessing locks the document row, verifies it is still uploaded
// and flips it to processing with a start timestamp, all in one transaction.
func (r *DocumentRepository) ClaimForProcessing(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, "id = ?", id).Error; err != nil {
			return err
		}
		if doc.Status != model.DocumentStatusUploaded {
			return ErrAlreadyClaimed
		}

		now := time.Now()
		doc.Status = model.DocumentStatusProcessing
		doc.ProcessingStarted = &now
		doc.ErrorMessage = ""
		return tx.Save(&doc).Error
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ResetForReprocess flips a processed or failed document back to uploaded and
// clears all processing results.
func (r *DocumentRepository) ResetForReprocess(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             model.DocumentStatusUploaded,
			"extracted_text":     "",
			"text_length":        0,
			"chunk_count":        0,
			"embeddings_created": false,
			"error_message":      "",
			"processing_started": nil,
			"processed_at":       nil,
		}).Error
}

// FindSearchable returns the owner's documents that are processed and have
// embeddings, optionally narrowed to a knowledge base.
func (r *DocumentRepository) FindSearchable(ctx context.Context, ownerID uuid.UUID, kbID *uuid.UUID) ([]model.Document, error) {
	var docs []model.Document
	query := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("owner_id = ? AND status = ? AND embeddings_created = true",
			ownerID, model.DocumentStatusProcessed)

	if kbID != nil {
		query = query.Joins(
			"JOIN rag_knowledge_base_documents kbd ON kbd.document_id = rag_documents.id AND kbd.knowledge_base_id = ?",
			*kbID)
	}

	err := query.Find(&docs).Error
	return docs, err
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/model"
	"github.com/m-tancredi/plai-rag/internal/repository"
)

type KnowledgeBaseService struct {
	kbRepo     *repository.KnowledgeBaseRepository
	docRepo    *repository.DocumentRepository
	embeddings *embedding.Manager
	logger     *slog.Logger
}

func NewKnowledgeBaseService(
	kbRepo *repository.KnowledgeBaseRepository,
	docRepo *repository.DocumentRepository,
	embeddings *embedding.Manager,
) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		kbRepo:     kbRepo,
		docRepo:    docRepo,
		embeddings: embeddings,
		logger:     slog.Default().With("component", "knowledge_base_service"),
	}
}

func (s *KnowledgeBaseService) Create(ctx context.Context, kb *model.KnowledgeBase) error {
	if kb.ChunkSize <= 0 {
		kb.ChunkSize = 1000
	}
	if kb.ChunkOverlap < 0 {
		kb.ChunkOverlap = 0
	}
	return s.kbRepo.Create(ctx, kb)
}

// GetByID returns the knowledge base with freshly computed stats.
func (s *KnowledgeBaseService) GetByID(ctx context.Context, id uuid.UUID) (*model.KnowledgeBase, error) {
	kb, err := s.kbRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	kb.DocumentCount, kb.ChunkCount, err = s.kbRepo.Stats(ctx, id)
	if err != nil {
		s.logger.Warn("stats computation failed", "knowledge_base_id", id, "error", err)
	}
	return kb, nil
}

func (s *KnowledgeBaseService) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]model.KnowledgeBase, int64, error) {
	return s.kbRepo.FindByOwnerID(ctx, ownerID, limit, offset)
}

func (s *KnowledgeBaseService) Update(ctx context.Context, kb *model.KnowledgeBase) error {
	return s.kbRepo.Update(ctx, kb)
}

func (s *KnowledgeBaseService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.kbRepo.Delete(ctx, id)
}

// AddDocument links a document into the knowledge base. The search-scope
// cache keyed on the member set is invalidated.
func (s *KnowledgeBaseService) AddDocument(ctx context.Context, kbID, docID uuid.UUID) error {
	if _, err := s.docRepo.FindByID(ctx, docID); err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}
	if err := s.kbRepo.AddDocument(ctx, kbID, docID); err != nil {
		return err
	}
	s.embeddings.Invalidate(docID)
	return nil
}

func (s *KnowledgeBaseService) RemoveDocument(ctx context.Context, kbID, docID uuid.UUID) error {
	if err := s.kbRepo.RemoveDocument(ctx, kbID, docID); err != nil {
		return err
	}
	s.embeddings.Invalidate(docID)
	return nil
}

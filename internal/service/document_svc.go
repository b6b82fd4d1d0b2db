package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/model"
	"github.com/m-tancredi/plai-rag/internal/storage"
)

// Enqueuer schedules a document id for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, docID uuid.UUID) error
}

// DocumentStore is the slice of the document repository the service needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, status string, limit, offset int) ([]model.Document, int64, error)
	ResetForReprocess(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChunkStore interface {
	FindByDocumentID(ctx context.Context, docID uuid.UUID, limit, offset int) ([]model.Chunk, int64, error)
	DeleteByDocumentID(ctx context.Context, docID uuid.UUID) error
}

type LogStore interface {
	FindByDocumentID(ctx context.Context, docID uuid.UUID, limit, offset int) ([]model.ProcessingLogEntry, int64, error)
}

// MembershipStore removes a document from every knowledge base it belongs to.
type MembershipStore interface {
	RemoveDocumentEverywhere(ctx context.Context, docID uuid.UUID) error
}

// EmbeddingArtifacts is the slice of the embedding manager the service needs.
type EmbeddingArtifacts interface {
	DeleteArtifact(docID uuid.UUID) error
}

type DocumentService struct {
	docRepo    DocumentStore
	chunkRepo  ChunkStore
	logRepo    LogStore
	kbRepo     MembershipStore
	files      storage.Store
	embeddings EmbeddingArtifacts
	queue      Enqueuer
	logger     *slog.Logger
}

func NewDocumentService(
	docRepo DocumentStore,
	chunkRepo ChunkStore,
	logRepo LogStore,
	kbRepo MembershipStore,
	files storage.Store,
	embeddings EmbeddingArtifacts,
	queue Enqueuer,
) *DocumentService {
	return &DocumentService{
		docRepo:    docRepo,
		chunkRepo:  chunkRepo,
		logRepo:    logRepo,
		kbRepo:     kbRepo,
		files:      files,
		embeddings: embeddings,
		queue:      queue,
		logger:     slog.Default().With("component", "document_service"),
	}
}

// Upload stores the raw bytes, creates the document in the uploaded state and
// enqueues its processing job.
func (s *DocumentService) Upload(ctx context.Context, ownerID uuid.UUID, filename, contentType string, reader io.Reader) (*model.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	docID := uuid.New()
	storagePath := path.Join("documents", ownerID.String(), docID.String(), filename)
	if err := s.files.Save(storagePath, data); err != nil {
		return nil, err
	}

	doc := &model.Document{
		OwnerID:          ownerID,
		OriginalFilename: filename,
		StoragePath:      storagePath,
		ContentType:      contentType,
		Size:             int64(len(data)),
		Status:           model.DocumentStatusUploaded,
	}
	doc.ID = docID

	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.files.Delete(storagePath)
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("enqueue processing: %w", err)
	}

	s.logger.Info("document uploaded",
		"document_id", doc.ID, "filename", filename, "size", doc.Size)
	return doc, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return s.docRepo.FindByID(ctx, id)
}

func (s *DocumentService) List(ctx context.Context, ownerID uuid.UUID, status string, limit, offset int) ([]model.Document, int64, error) {
	return s.docRepo.FindByOwnerID(ctx, ownerID, status, limit, offset)
}

// Delete cascades: chunk rows, embedding artifact, stored file, knowledge
// base memberships, cached indices, then the document row itself.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.chunkRepo.DeleteByDocumentID(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.embeddings.DeleteArtifact(id); err != nil {
		s.logger.Warn("artifact delete failed", "document_id", id, "error", err)
	}
	if doc.StoragePath != "" {
		if err := s.files.Delete(doc.StoragePath); err != nil {
			s.logger.Warn("file delete failed", "document_id", id, "error", err)
		}
	}
	if err := s.kbRepo.RemoveDocumentEverywhere(ctx, id); err != nil {
		s.logger.Warn("membership cleanup failed", "document_id", id, "error", err)
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("document deleted", "document_id", id)
	return nil
}

// Reprocess purges existing chunks and the embedding artifact, resets the
// document to uploaded and enqueues a fresh processing job.
func (s *DocumentService) Reprocess(ctx context.Context, id uuid.UUID) error {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status == model.DocumentStatusProcessing {
		return fmt.Errorf("document %s is currently processing", id)
	}

	if err := s.chunkRepo.DeleteByDocumentID(ctx, id); err != nil {
		return fmt.Errorf("purge chunks: %w", err)
	}
	if err := s.embeddings.DeleteArtifact(id); err != nil {
		s.logger.Warn("artifact purge failed", "document_id", id, "error", err)
	}
	if err := s.docRepo.ResetForReprocess(ctx, id); err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, id); err != nil {
		return fmt.Errorf("enqueue reprocess: %w", err)
	}

	s.logger.Info("document reprocess requested", "document_id", id)
	return nil
}

func (s *DocumentService) ListChunks(ctx context.Context, id uuid.UUID, limit, offset int) ([]model.Chunk, int64, error) {
	return s.chunkRepo.FindByDocumentID(ctx, id, limit, offset)
}

func (s *DocumentService) ListLogs(ctx context.Context, id uuid.UUID, limit, offset int) ([]model.ProcessingLogEntry, int64, error) {
	return s.logRepo.FindByDocumentID(ctx, id, limit, offset)
}

// Download returns the original uploaded bytes.
func (s *DocumentService) Download(ctx context.Context, id uuid.UUID) ([]byte, *model.Document, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.files.Read(doc.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}

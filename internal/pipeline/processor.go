// Package pipeline runs the asynchronous document processing jobs: extract,
// chunk, embed, persist, driven by a redis-backed queue and a worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/m-tancredi/plai-rag/internal/chunker"
	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/extractor"
	"github.com/m-tancredi/plai-rag/internal/model"
	"github.com/m-tancredi/plai-rag/internal/repository"
	"github.com/m-tancredi/plai-rag/internal/storage"
)

const maxErrorMessageLen = 500

// Pipeline step tags recorded on log entries.
const (
	StepExtract = "extract"
	StepChunk   = "chunk"
	StepEmbed   = "embed"
	StepPersist = "persist"
)

// DocumentStore is the slice of the document repository the processor needs.
type DocumentStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	ClaimForProcessing(ctx context.Context, id uuid.UUID) (*model.Document, error)
	Update(ctx context.Context, doc *model.Document) error
	ResetForReprocess(ctx context.Context, id uuid.UUID) error
}

type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []model.Chunk) error
	DeleteByDocumentID(ctx context.Context, docID uuid.UUID) error
}

type LogStore interface {
	Append(ctx context.Context, entry *model.ProcessingLogEntry) error
}

// Embeddings is the slice of the embedding manager the processor needs.
type Embeddings interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	SaveArtifact(docID uuid.UUID, vectors [][]float32, chunks []string, meta embedding.ArtifactMetadata) error
	DeleteArtifact(docID uuid.UUID) error
	Invalidate(docID uuid.UUID)
	Model() string
}

// Processor executes one document job as an explicit state machine. Each
// stage is a pure function returning a result or an error; document state is
// committed exactly once per stage boundary.
type Processor struct {
	docs       DocumentStore
	chunks     ChunkStore
	logs       LogStore
	embeddings Embeddings
	registry   *extractor.Registry
	files      storage.Store
	chunkCfg   chunker.Config
	logger     *slog.Logger
}

func NewProcessor(
	docs DocumentStore,
	chunks ChunkStore,
	logs LogStore,
	embeddings Embeddings,
	registry *extractor.Registry,
	files storage.Store,
	chunkCfg chunker.Config,
) *Processor {
	return &Processor{
		docs:       docs,
		chunks:     chunks,
		logs:       logs,
		embeddings: embeddings,
		registry:   registry,
		files:      files,
		chunkCfg:   chunkCfg,
		logger:     slog.Default().With("component", "pipeline"),
	}
}

// Process runs the full pipeline for one document. The returned requeue flag
// asks the worker to retry once for infrastructure-level failures; content
// failures are terminal and flip the document to failed.
func (p *Processor) Process(ctx context.Context, docID uuid.UUID, attempt int) (requeue bool, err error) {
	doc, err := p.docs.ClaimForProcessing(ctx, docID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			p.logger.Info("document already claimed, skipping", "document_id", docID)
			return false, nil
		}
		return attempt == 0, fmt.Errorf("claim document %s: %w", docID, err)
	}

	start := time.Now()
	p.logger.Info("processing started", "document_id", docID, "filename", doc.OriginalFilename)

	text, format, err := p.runExtract(ctx, doc)
	if err != nil {
		return p.stageFailed(ctx, doc, StepExtract, err, attempt)
	}
	doc.ExtractedText = text
	doc.TextLength = len([]rune(text))
	doc.DetectedFormat = format.String()
	if err := p.docs.Update(ctx, doc); err != nil {
		return p.stageFailed(ctx, doc, StepExtract, err, attempt)
	}

	pieces, err := p.runChunk(ctx, doc, text)
	if err != nil {
		return p.stageFailed(ctx, doc, StepChunk, err, attempt)
	}

	vectors, err := p.runEmbed(ctx, doc, pieces)
	if err != nil {
		return p.stageFailed(ctx, doc, StepEmbed, err, attempt)
	}

	if err := p.runPersist(ctx, doc, pieces, vectors); err != nil {
		return p.stageFailed(ctx, doc, StepPersist, err, attempt)
	}

	now := time.Now()
	doc.ChunkCount = len(pieces)
	doc.EmbeddingsCreated = true
	doc.Status = model.DocumentStatusProcessed
	doc.ProcessedAt = &now
	if err := p.docs.Update(ctx, doc); err != nil {
		return p.stageFailed(ctx, doc, StepPersist, err, attempt)
	}

	// The document just became searchable; any cached scope that could have
	// contained it is stale.
	p.embeddings.Invalidate(doc.ID)

	p.logger.Info("processing finished",
		"document_id", docID,
		"chunks", len(pieces),
		"duration", time.Since(start))
	return false, nil
}

func (p *Processor) runExtract(ctx context.Context, doc *model.Document) (string, extractor.Format, error) {
	p.logStage(ctx, doc.ID, StepExtract, "extraction started", nil)

	data, err := p.files.Read(doc.StoragePath)
	if err != nil {
		return "", extractor.FormatUnknown, err
	}

	format := extractor.DetectFormat(data, doc.OriginalFilename)
	text, err := p.registry.Extract(ctx, data, format)
	if err != nil {
		return "", format, err
	}

	p.logStage(ctx, doc.ID, StepExtract, "extraction finished", model.JSONMap{
		"format":      format.String(),
		"text_length": len([]rune(text)),
	})
	return text, format, nil
}

func (p *Processor) runChunk(ctx context.Context, doc *model.Document, text string) ([]chunker.Piece, error) {
	p.logStage(ctx, doc.ID, StepChunk, "chunking started", nil)

	pieces, err := chunker.New(p.chunkCfg).Chunk(text)
	if err != nil {
		return nil, err
	}

	p.logStage(ctx, doc.ID, StepChunk, "chunking finished", model.JSONMap{
		"chunks": len(pieces),
	})
	return pieces, nil
}

func (p *Processor) runEmbed(ctx context.Context, doc *model.Document, pieces []chunker.Piece) ([][]float32, error) {
	p.logStage(ctx, doc.ID, StepEmbed, "embedding started", nil)

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Text
	}

	vectors, err := p.embeddings.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	p.logStage(ctx, doc.ID, StepEmbed, "embedding finished", model.JSONMap{
		"vectors":   len(vectors),
		"dimension": dim,
	})
	return vectors, nil
}

func (p *Processor) runPersist(ctx context.Context, doc *model.Document, pieces []chunker.Piece, vectors [][]float32) error {
	p.logStage(ctx, doc.ID, StepPersist, "persistence started", nil)

	texts := make([]string, len(pieces))
	rows := make([]model.Chunk, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Text
		rows[i] = model.Chunk{
			DocumentID:       doc.ID,
			ChunkIndex:       piece.Index,
			Content:          piece.Text,
			StartOffset:      piece.Start,
			EndOffset:        piece.End,
			Length:           piece.End - piece.Start,
			EmbeddingCreated: true,
			EmbeddingDim:     len(vectors[i]),
			Embedding:        pgvector.NewVector(vectors[i]),
		}
	}

	if err := p.embeddings.SaveArtifact(doc.ID, vectors, texts, embedding.ArtifactMetadata{
		Filename: doc.OriginalFilename,
		MimeType: doc.ContentType,
		Model:    p.embeddings.Model(),
	}); err != nil {
		return err
	}

	// A retried job may already have persisted rows before the previous
	// attempt failed past this stage; chunk indices must stay unique per
	// document, so the insert replaces rather than appends.
	if err := p.chunks.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return err
	}
	if err := p.chunks.CreateBatch(ctx, rows); err != nil {
		return err
	}

	p.logStage(ctx, doc.ID, StepPersist, "persistence finished", model.JSONMap{
		"chunks": len(rows),
	})
	return nil
}

// stageFailed handles any stage error. Content-level failures are terminal;
// infrastructure-level failures on the first attempt release the document
// back to uploaded so the worker can requeue it once.
func (p *Processor) stageFailed(ctx context.Context, doc *model.Document, step string, stageErr error, attempt int) (bool, error) {
	if !isContentError(stageErr) && attempt == 0 {
		p.logger.Warn("infrastructure failure, requeueing once",
			"document_id", doc.ID, "step", step, "error", stageErr)
		if err := p.docs.ResetForReprocess(ctx, doc.ID); err != nil {
			p.logger.Error("failed to release document for retry",
				"document_id", doc.ID, "error", err)
		}
		return true, stageErr
	}

	docID := doc.ID
	entry := &model.ProcessingLogEntry{
		DocumentID: &docID,
		Level:      model.LogLevelError,
		Step:       step,
		Message:    truncate(stageErr.Error(), maxErrorMessageLen),
	}
	if err := p.logs.Append(ctx, entry); err != nil {
		p.logger.Error("failed to append error log entry", "document_id", doc.ID, "error", err)
	}

	now := time.Now()
	doc.Status = model.DocumentStatusFailed
	doc.ErrorMessage = truncate(stageErr.Error(), maxErrorMessageLen)
	doc.ProcessedAt = &now
	if err := p.docs.Update(ctx, doc); err != nil {
		p.logger.Error("failed to mark document as failed", "document_id", doc.ID, "error", err)
	}

	p.logger.Error("processing failed",
		"document_id", doc.ID, "step", step, "error", stageErr)
	return false, stageErr
}

func (p *Processor) logStage(ctx context.Context, docID uuid.UUID, step, message string, extra model.JSONMap) {
	id := docID
	entry := &model.ProcessingLogEntry{
		DocumentID: &id,
		Level:      model.LogLevelInfo,
		Step:       step,
		Message:    message,
		Extra:      extra,
	}
	if err := p.logs.Append(ctx, entry); err != nil {
		p.logger.Error("failed to append log entry", "document_id", docID, "error", err)
	}
}

// isContentError reports whether the failure is inherent to the document
// content. Content failures are never retried automatically; everything else
// (storage, database, embedding provider) counts as infrastructure.
func isContentError(err error) bool {
	var extractionErr *extractor.ExtractionError
	return errors.Is(err, extractor.ErrUnsupportedFormat) ||
		errors.As(err, &extractionErr) ||
		errors.Is(err, chunker.ErrEmptyInput)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Package retrieval answers natural-language queries by retrieving the most
// relevant chunks and grounding a generated answer in them, degrading
// gracefully when the semantic index is unavailable.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/llm"
	"github.com/m-tancredi/plai-rag/internal/model"
)

// DocumentStore is the slice of the document repository the orchestrator
// needs for scope resolution and fallback search.
type DocumentStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	FindSearchable(ctx context.Context, ownerID uuid.UUID, kbID *uuid.UUID) ([]model.Document, error)
}

type ChunkStore interface {
	FindByDocumentID(ctx context.Context, docID uuid.UUID, limit, offset int) ([]model.Chunk, int64, error)
}

// Searcher is the slice of the embedding manager the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, query string, docIDs []uuid.UUID, topK int) ([]embedding.Hit, error)
}

type Config struct {
	MaxContextChars int
	DefaultTopK     int
}

type Orchestrator struct {
	docs      DocumentStore
	chunks    ChunkStore
	searcher  Searcher
	generator llm.Generator
	cfg       Config
	logger    *slog.Logger
}

func NewOrchestrator(docs DocumentStore, chunks ChunkStore, searcher Searcher, generator llm.Generator, cfg Config) *Orchestrator {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 12000
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	return &Orchestrator{
		docs:      docs,
		chunks:    chunks,
		searcher:  searcher,
		generator: generator,
		cfg:       cfg,
		logger:    slog.Default().With("component", "retrieval"),
	}
}

// ResolveScope returns the documents a query may search: the explicit ids if
// given, otherwise every searchable document of the owner, optionally
// narrowed to a knowledge base.
func (o *Orchestrator) ResolveScope(ctx context.Context, ownerID uuid.UUID, explicitIDs []uuid.UUID, kbID *uuid.UUID) ([]model.Document, error) {
	if len(explicitIDs) > 0 {
		docs := make([]model.Document, 0, len(explicitIDs))
		for _, id := range explicitIDs {
			doc, err := o.docs.FindByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve document %s: %w", id, err)
			}
			docs = append(docs, *doc)
		}
		return docs, nil
	}
	return o.docs.FindSearchable(ctx, ownerID, kbID)
}

// Retrieve delegates to the embedding manager. An empty scope or an empty
// result is a normal outcome, not an error.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, scope []model.Document, topK int) ([]embedding.Hit, error) {
	if len(scope) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = o.cfg.DefaultTopK
	}

	ids := make([]uuid.UUID, len(scope))
	for i, doc := range scope {
		ids[i] = doc.ID
	}
	return o.searcher.Search(ctx, query, ids, topK)
}

// BuildContext concatenates chunk texts with per-chunk source attribution,
// bounded in total length. It also returns the hits that made it into the
// context, since hits past the length bound are dropped.
func (o *Orchestrator) BuildContext(hits []embedding.Hit, docsByID map[uuid.UUID]model.Document) (string, []embedding.Hit) {
	var sb strings.Builder
	var used []embedding.Hit
	for _, hit := range hits {
		name := hit.DocumentID.String()
		if doc, ok := docsByID[hit.DocumentID]; ok {
			name = doc.OriginalFilename
		}

		section := fmt.Sprintf("[Source: %s, chunk %d]\n%s\n\n", name, hit.ChunkIndex, hit.Text)
		if sb.Len()+len(section) > o.cfg.MaxContextChars {
			break
		}
		sb.WriteString(section)
		used = append(used, hit)
	}
	return strings.TrimSpace(sb.String()), used
}

const groundedSystemPrompt = `You are a helpful assistant. Answer the user's question using the provided document context. Cite the sources you used. If the context does not contain the answer, say so before answering from general knowledge.`

const ungroundedSystemPrompt = `You are a helpful assistant. No document context is available for this question; answer from general knowledge and make clear that the answer is not based on the user's documents.`

// Answer invokes the generative collaborator. It is called even with an
// empty context, which produces a general-knowledge answer.
func (o *Orchestrator) Answer(ctx context.Context, contextText, query string, maxTokens int) (string, error) {
	if contextText == "" {
		return o.generator.Generate(ctx, ungroundedSystemPrompt, query, maxTokens)
	}
	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, query)
	return o.generator.Generate(ctx, groundedSystemPrompt, user, maxTokens)
}

type ChatRequest struct {
	OwnerID         uuid.UUID
	Query           string
	DocumentIDs     []uuid.UUID
	KnowledgeBaseID *uuid.UUID
	TopK            int
	MaxTokens       int
}

type ContextChunk struct {
	Text     string    `json:"text"`
	Score    float64   `json:"score"`
	SourceID uuid.UUID `json:"source_id"`
}

type SourceDocument struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatResponse struct {
	Answer         string           `json:"answer"`
	ContextChunks  []ContextChunk   `json:"context_chunks"`
	Sources        []SourceDocument `json:"sources"`
	ProcessingTime float64          `json:"processing_time"`
	Model          string           `json:"model"`
	Ungrounded     bool             `json:"ungrounded,omitempty"`
	Fallback       bool             `json:"fallback,omitempty"`
	Note           string           `json:"note,omitempty"`
}

// Chat runs the full retrieval-augmented answer flow. Index or embedding
// failures degrade to lexical search; this method never fails the caller for
// retrieval-side errors, only for a failing generative call.
func (o *Orchestrator) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	resp := &ChatResponse{Model: o.generator.ModelName()}

	scope, err := o.ResolveScope(ctx, req.OwnerID, req.DocumentIDs, req.KnowledgeBaseID)
	if err != nil {
		o.logger.Warn("scope resolution failed, answering ungrounded", "error", err)
		scope = nil
	}

	docsByID := make(map[uuid.UUID]model.Document, len(scope))
	for _, doc := range scope {
		docsByID[doc.ID] = doc
	}

	hits, err := o.Retrieve(ctx, req.Query, scope, req.TopK)
	if err != nil {
		o.logger.Warn("semantic retrieval failed, using lexical fallback", "error", err)
		hits = lexicalSearch(req.Query, scope, o.topK(req.TopK))
		resp.Fallback = true
		resp.Note = "semantic search unavailable; results from keyword matching"
	}

	contextText, used := o.BuildContext(hits, docsByID)
	if contextText == "" {
		resp.Ungrounded = true
		if resp.Note == "" {
			resp.Note = "no relevant documents found; answer is not grounded in your documents"
		}
	}

	answer, err := o.Answer(ctx, contextText, req.Query, req.MaxTokens)
	if err != nil {
		return nil, err
	}
	resp.Answer = answer

	// Only the chunks actually placed in the prompt are reported back.
	seen := make(map[uuid.UUID]bool)
	for _, hit := range used {
		resp.ContextChunks = append(resp.ContextChunks, ContextChunk{
			Text:     snippet(hit.Text, 300),
			Score:    hit.Score,
			SourceID: hit.DocumentID,
		})
		if doc, ok := docsByID[hit.DocumentID]; ok && !seen[hit.DocumentID] {
			seen[hit.DocumentID] = true
			resp.Sources = append(resp.Sources, SourceDocument{
				ID:        doc.ID,
				Filename:  doc.OriginalFilename,
				MimeType:  doc.ContentType,
				CreatedAt: doc.CreatedAt,
			})
		}
	}

	resp.ProcessingTime = time.Since(start).Seconds()
	return resp, nil
}

func (o *Orchestrator) topK(k int) int {
	if k <= 0 {
		return o.cfg.DefaultTopK
	}
	return k
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

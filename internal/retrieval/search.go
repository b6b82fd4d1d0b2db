package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/model"
)

type SearchRequest struct {
	DocumentID          uuid.UUID
	Query               string
	TopK                int
	SimilarityThreshold float64
	IncludeContext      bool
	EnableClustering    bool
}

type SearchResult struct {
	Text        string  `json:"text"`
	Relevance   float64 `json:"relevance"`
	Confidence  float64 `json:"confidence"`
	ChunkIndex  int     `json:"chunk_index"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	ClusterID   int     `json:"cluster_id"`
	Highlights  []Span  `json:"highlights,omitempty"`
	Context     string  `json:"context,omitempty"`
}

type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Intent   string         `json:"intent,omitempty"`
	Fallback bool           `json:"fallback,omitempty"`
}

// Search runs a document-scoped semantic search with threshold filtering and
// best-effort enrichment. Enrichment never fails the request; semantic
// failures degrade to lexical matching.
func (o *Orchestrator) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	doc, err := o.docs.FindByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", req.DocumentID, err)
	}

	topK := o.topK(req.TopK)
	resp := &SearchResponse{}

	hits, err := o.searcher.Search(ctx, req.Query, []uuid.UUID{doc.ID}, topK)
	if err != nil {
		o.logger.Warn("semantic search failed, using lexical fallback",
			"document_id", doc.ID, "error", err)
		hits = lexicalSearch(req.Query, []model.Document{*doc}, topK)
		resp.Fallback = true
	}

	if req.SimilarityThreshold > 0 {
		filtered := hits[:0]
		for _, hit := range hits {
			if hit.Score >= req.SimilarityThreshold {
				filtered = append(filtered, hit)
			}
		}
		hits = filtered
	}

	// Lexical hits index sentences, not chunk rows, so their offsets and
	// surrounding context stay empty.
	var chunksByIndex map[int]model.Chunk
	if !resp.Fallback {
		chunksByIndex = o.chunkOffsets(ctx, doc.ID)
	}

	var clusters []int
	if req.EnableClustering {
		clusters = o.enrichClusters(hits)
	}

	for i, hit := range hits {
		result := SearchResult{
			Text:       hit.Text,
			Relevance:  hit.Score,
			Confidence: confidence(hit.Score),
			ChunkIndex: hit.ChunkIndex,
			Highlights: o.enrichHighlights(hit.Text, req.Query),
		}
		if chunk, ok := chunksByIndex[hit.ChunkIndex]; ok {
			result.StartOffset = chunk.StartOffset
			result.EndOffset = chunk.EndOffset
			if req.IncludeContext {
				result.Context = o.contextSnippet(chunksByIndex, hit.ChunkIndex)
			}
		}
		if clusters != nil && i < len(clusters) {
			result.ClusterID = clusters[i]
		}
		resp.Results = append(resp.Results, result)
	}

	resp.Intent = classifyIntent(req.Query)
	return resp, nil
}

func (o *Orchestrator) chunkOffsets(ctx context.Context, docID uuid.UUID) map[int]model.Chunk {
	byIndex := make(map[int]model.Chunk)
	chunks, _, err := o.chunks.FindByDocumentID(ctx, docID, -1, 0)
	if err != nil {
		o.logger.Warn("chunk offsets unavailable", "document_id", docID, "error", err)
		return byIndex
	}
	for _, chunk := range chunks {
		byIndex[chunk.ChunkIndex] = chunk
	}
	return byIndex
}

// contextSnippet returns the neighboring chunks' text around a hit.
func (o *Orchestrator) contextSnippet(byIndex map[int]model.Chunk, index int) string {
	var parts []string
	if prev, ok := byIndex[index-1]; ok {
		parts = append(parts, snippet(prev.Content, 200))
	}
	if next, ok := byIndex[index+1]; ok {
		parts = append(parts, snippet(next.Content, 200))
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " … " + p
	}
	return out
}

// confidence maps a cosine similarity into [0,1].
func confidence(score float64) float64 {
	c := (score + 1) / 2
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

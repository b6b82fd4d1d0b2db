package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/retrieval"
)

type SearchHandler struct {
	orchestrator *retrieval.Orchestrator
}

func NewSearchHandler(orchestrator *retrieval.Orchestrator) *SearchHandler {
	return &SearchHandler{orchestrator: orchestrator}
}

type SearchRequest struct {
	Query               string  `json:"query" binding:"required"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	IncludeContext      bool    `json:"include_context"`
	EnableClustering    bool    `json:"enable_clustering"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	docID, ok := pathID(c)
	if !ok {
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.orchestrator.Search(c.Request.Context(), &retrieval.SearchRequest{
		DocumentID:          docID,
		Query:               req.Query,
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
		IncludeContext:      req.IncludeContext,
		EnableClustering:    req.EnableClustering,
	})
	if err != nil {
		notFoundOr500(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type ChatHandlerRequest struct {
	OwnerID         string   `json:"owner_id" binding:"required"`
	SessionID       string   `json:"session_id"`
	Query           string   `json:"query" binding:"required"`
	DocumentIDs     []string `json:"document_ids"`
	KnowledgeBaseID string   `json:"knowledge_base_id"`
	TopK            int      `json:"top_k"`
	MaxTokens       int      `json:"max_tokens"`
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

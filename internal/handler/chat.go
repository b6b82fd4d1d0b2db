package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/retrieval"
	"github.com/m-tancredi/plai-rag/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatHandlerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}

	docIDs, err := parseUUIDs(req.DocumentIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_ids"})
		return
	}

	var sessionID *uuid.UUID
	if req.SessionID != "" {
		sid, err := uuid.Parse(req.SessionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
			return
		}
		sessionID = &sid
	}

	var kbID *uuid.UUID
	if req.KnowledgeBaseID != "" {
		kid, err := uuid.Parse(req.KnowledgeBaseID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid knowledge_base_id"})
			return
		}
		kbID = &kid
	}

	resp, sid, err := h.svc.Chat(c.Request.Context(), sessionID, &retrieval.ChatRequest{
		OwnerID:         ownerID,
		Query:           req.Query,
		DocumentIDs:     docIDs,
		KnowledgeBaseID: kbID,
		TopK:            req.TopK,
		MaxTokens:       req.MaxTokens,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sid,
		"response":   resp,
	})
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	session, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

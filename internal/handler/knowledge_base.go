package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/model"
	"github.com/m-tancredi/plai-rag/internal/service"
)

type KnowledgeBaseHandler struct {
	svc *service.KnowledgeBaseService
}

func NewKnowledgeBaseHandler(svc *service.KnowledgeBaseService) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{svc: svc}
}

type createKnowledgeBaseRequest struct {
	OwnerID        string   `json:"owner_id" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	ChunkSize      int      `json:"chunk_size"`
	ChunkOverlap   int      `json:"chunk_overlap"`
	EmbeddingModel string   `json:"embedding_model"`
	Tags           []string `json:"tags"`
}

func (h *KnowledgeBaseHandler) Create(c *gin.Context) {
	var req createKnowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}

	kb := &model.KnowledgeBase{
		OwnerID:        ownerID,
		Name:           req.Name,
		Description:    req.Description,
		ChunkSize:      req.ChunkSize,
		ChunkOverlap:   req.ChunkOverlap,
		EmbeddingModel: req.EmbeddingModel,
		Tags:           req.Tags,
	}
	if err := h.svc.Create(c.Request.Context(), kb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, kb)
}

func (h *KnowledgeBaseHandler) List(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}
	limit, offset := pagination(c)

	kbs, total, err := h.svc.List(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"knowledge_bases": kbs,
		"total":           total,
		"limit":           limit,
		"offset":          offset,
	})
}

func (h *KnowledgeBaseHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	kb, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, kb)
}

type updateKnowledgeBaseRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

func (h *KnowledgeBaseHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateKnowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kb, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err)
		return
	}
	if req.Name != nil {
		kb.Name = *req.Name
	}
	if req.Description != nil {
		kb.Description = *req.Description
	}
	if req.Tags != nil {
		kb.Tags = req.Tags
	}
	if err := h.svc.Update(c.Request.Context(), kb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, kb)
}

func (h *KnowledgeBaseHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *KnowledgeBaseHandler) AddDocument(c *gin.Context) {
	kbID, ok := pathID(c)
	if !ok {
		return
	}
	docID, err := uuid.Parse(c.Param("doc_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	if err := h.svc.AddDocument(c.Request.Context(), kbID, docID); err != nil {
		notFoundOr500(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *KnowledgeBaseHandler) RemoveDocument(c *gin.Context) {
	kbID, ok := pathID(c)
	if !ok {
		return
	}
	docID, err := uuid.Parse(c.Param("doc_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	if err := h.svc.RemoveDocument(c.Request.Context(), kbID, docID); err != nil {
		notFoundOr500(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

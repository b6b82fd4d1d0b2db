package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/m-tancredi/plai-rag/internal/service"
)

type DocumentHandler struct {
	svc           *service.DocumentService
	maxUploadSize int64
}

func NewDocumentHandler(svc *service.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxUploadSize: maxUploadSize}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	ownerID, err := uuid.Parse(c.PostForm("owner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	doc, err := h.svc.Upload(c.Request.Context(), ownerID, fileHeader.Filename, contentType, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}

	limit, offset := pagination(c)
	docs, total, err := h.svc.List(c.Request.Context(), ownerID, c.Query("status"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": total})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Reprocess(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"reprocessing": id})
}

func (h *DocumentHandler) ListChunks(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	chunks, total, err := h.svc.ListChunks(c.Request.Context(), id, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chunks": chunks, "total": total})
}

func (h *DocumentHandler) ListLogs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	entries, total, err := h.svc.ListLogs(c.Request.Context(), id, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries, "total": total})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	data, doc, err := h.svc.Download(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.OriginalFilename+`"`)
	c.Data(http.StatusOK, doc.ContentType, data)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func notFoundOr500(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

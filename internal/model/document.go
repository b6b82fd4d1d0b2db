package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type Document struct {
	BaseModel
	OwnerID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	OriginalFilename  string         `gorm:"size:500;not null" json:"original_filename"`
	StoragePath       string         `gorm:"size:1000" json:"storage_path"`
	ContentType       string         `gorm:"size:100" json:"content_type"`
	DetectedFormat    string         `gorm:"size:50" json:"detected_format"`
	Size              int64          `gorm:"not null" json:"size"`
	ExtractedText     string         `gorm:"type:text" json:"-"`
	TextLength        int            `gorm:"default:0" json:"text_length"`
	ChunkCount        int            `gorm:"default:0" json:"chunk_count"`
	EmbeddingsCreated bool           `gorm:"default:false" json:"embeddings_created"`
	Status            DocumentStatus `gorm:"size:50;default:'uploaded';index" json:"status"`
	ErrorMessage      string         `gorm:"type:text" json:"error_message,omitempty"`
	ProcessingStarted *time.Time     `json:"processing_started,omitempty"`
	ProcessedAt       *time.Time     `json:"processed_at,omitempty"`
	Metadata          JSONMap        `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Document) TableName() string {
	return "rag_documents"
}

package model

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Chunk is one embedded segment of a document's extracted text. Indices are
// zero-based and dense per document; offsets are rune positions in the source
// text.
type Chunk struct {
	BaseModel
	DocumentID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkIndex       int             `gorm:"not null" json:"chunk_index"`
	Content          string          `gorm:"type:text;not null" json:"content"`
	StartOffset      int             `gorm:"default:0" json:"start_offset"`
	EndOffset        int             `gorm:"default:0" json:"end_offset"`
	Length           int             `gorm:"default:0" json:"length"`
	EmbeddingCreated bool            `gorm:"default:false" json:"embedding_created"`
	EmbeddingDim     int             `gorm:"default:0" json:"embedding_dim"`
	Embedding        pgvector.Vector `gorm:"type:vector(1536)" json:"-"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

func (Chunk) TableName() string {
	return "rag_chunks"
}

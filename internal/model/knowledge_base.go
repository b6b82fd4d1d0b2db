package model

import (
	"github.com/google/uuid"
)

// KnowledgeBase groups documents for scoped retrieval. The aggregate counts
// are computed from membership, never stored authoritatively.
type KnowledgeBase struct {
	BaseModel
	OwnerID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// Advisory processing preferences shown to clients. Documents are
	// processed once with the service-wide chunk and embedding settings
	// and may belong to several knowledge bases, so these do not steer
	// the pipeline.
	ChunkSize      int         `gorm:"default:1000" json:"chunk_size"`
	ChunkOverlap   int         `gorm:"default:200" json:"chunk_overlap"`
	EmbeddingModel string      `gorm:"size:100" json:"embedding_model"`
	Tags           StringArray `gorm:"type:jsonb" json:"tags,omitempty"`

	// Stats (computed)
	DocumentCount int64 `gorm:"-" json:"document_count,omitempty"`
	ChunkCount    int64 `gorm:"-" json:"chunk_count,omitempty"`
}

func (KnowledgeBase) TableName() string {
	return "rag_knowledge_bases"
}

// KnowledgeBaseDocument is the membership row linking a document into a
// knowledge base.
type KnowledgeBaseDocument struct {
	BaseModel
	KnowledgeBaseID uuid.UUID `gorm:"type:uuid;not null;index:idx_kb_doc,unique" json:"knowledge_base_id"`
	DocumentID      uuid.UUID `gorm:"type:uuid;not null;index:idx_kb_doc,unique" json:"document_id"`
}

func (KnowledgeBaseDocument) TableName() string {
	return "rag_knowledge_base_documents"
}

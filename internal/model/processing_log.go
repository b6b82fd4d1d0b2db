package model

import (
	"github.com/google/uuid"
)

type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ProcessingLogEntry records one pipeline event for a document. Entries are
// append-only and never mutated after creation.
type ProcessingLogEntry struct {
	BaseModel
	DocumentID *uuid.UUID `gorm:"type:uuid;index" json:"document_id,omitempty"`
	Level      LogLevel   `gorm:"size:20;not null" json:"level"`
	Step       string     `gorm:"size:50" json:"step"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Extra      JSONMap    `gorm:"type:jsonb" json:"extra,omitempty"`
}

func (ProcessingLogEntry) TableName() string {
	return "rag_processing_logs"
}

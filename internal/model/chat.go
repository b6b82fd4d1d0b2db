package model

import (
	"github.com/google/uuid"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatSession struct {
	BaseModel
	OwnerID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	KnowledgeBaseID *uuid.UUID `gorm:"type:uuid;index" json:"knowledge_base_id,omitempty"`
	Title           string     `gorm:"size:255" json:"title"`

	Messages []ChatMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

func (ChatSession) TableName() string {
	return "rag_chat_sessions"
}

type ChatMessage struct {
	BaseModel
	SessionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	Role       ChatRole  `gorm:"size:20;not null" json:"role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Ungrounded bool      `gorm:"default:false" json:"ungrounded"`
	Fallback   bool      `gorm:"default:false" json:"fallback"`
	Sources    JSONMap   `gorm:"type:jsonb" json:"sources,omitempty"`
}

func (ChatMessage) TableName() string {
	return "rag_chat_messages"
}

package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/model"
	"github.com/m-tancredi/plai-rag/internal/repository"
	"github.com/m-tancredi/plai-rag/internal/retrieval"
)

// ChatService runs the retrieval orchestrator and persists the conversation
// turns with their source citations.
type ChatService struct {
	orchestrator *retrieval.Orchestrator
	chatRepo     *repository.ChatRepository
	logger       *slog.Logger
}

func NewChatService(orchestrator *retrieval.Orchestrator, chatRepo *repository.ChatRepository) *ChatService {
	return &ChatService{
		orchestrator: orchestrator,
		chatRepo:     chatRepo,
		logger:       slog.Default().With("component", "chat_service"),
	}
}

// Chat answers the query and records both turns on the session, creating the
// session on first use. Persistence failures are logged, never surfaced: the
// answer was already produced.
func (s *ChatService) Chat(ctx context.Context, sessionID *uuid.UUID, req *retrieval.ChatRequest) (*retrieval.ChatResponse, uuid.UUID, error) {
	resp, err := s.orchestrator.Chat(ctx, req)
	if err != nil {
		return nil, uuid.Nil, err
	}

	sid, err := s.ensureSession(ctx, sessionID, req)
	if err != nil {
		s.logger.Warn("session creation failed", "error", err)
		return resp, uuid.Nil, nil
	}

	userMsg := &model.ChatMessage{
		SessionID: sid,
		Role:      model.ChatRoleUser,
		Content:   req.Query,
	}
	if err := s.chatRepo.AppendMessage(ctx, userMsg); err != nil {
		s.logger.Warn("user message persistence failed", "session_id", sid, "error", err)
	}

	sources := make([]interface{}, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		sources = append(sources, map[string]interface{}{
			"id":       src.ID.String(),
			"filename": src.Filename,
		})
	}
	assistantMsg := &model.ChatMessage{
		SessionID:  sid,
		Role:       model.ChatRoleAssistant,
		Content:    resp.Answer,
		Ungrounded: resp.Ungrounded,
		Fallback:   resp.Fallback,
		Sources:    model.JSONMap{"documents": sources},
	}
	if err := s.chatRepo.AppendMessage(ctx, assistantMsg); err != nil {
		s.logger.Warn("assistant message persistence failed", "session_id", sid, "error", err)
	}

	return resp, sid, nil
}

func (s *ChatService) ensureSession(ctx context.Context, sessionID *uuid.UUID, req *retrieval.ChatRequest) (uuid.UUID, error) {
	if sessionID != nil && *sessionID != uuid.Nil {
		return *sessionID, nil
	}

	session := &model.ChatSession{
		OwnerID:         req.OwnerID,
		KnowledgeBaseID: req.KnowledgeBaseID,
		Title:           titleFromQuery(req.Query),
	}
	if err := s.chatRepo.CreateSession(ctx, session); err != nil {
		return uuid.Nil, err
	}
	return session.ID, nil
}

func (s *ChatService) GetSession(ctx context.Context, id uuid.UUID) (*model.ChatSession, error) {
	return s.chatRepo.FindSession(ctx, id)
}

func titleFromQuery(query string) string {
	runes := []rune(query)
	if len(runes) <= 80 {
		return query
	}
	return string(runes[:80])
}

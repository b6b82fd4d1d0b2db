// Package llm builds the generative chat model consumed by the retrieval
// orchestrator.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type ProviderKind string

const (
	ProviderOpenAI     ProviderKind = "openai"
	ProviderCompatible ProviderKind = "openai_compatible"
	ProviderArk        ProviderKind = "ark"
)

type ProviderConfig struct {
	Kind    ProviderKind
	APIKey  string
	Model   string
	BaseURL string
}

// NewChatModel creates the chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg *ProviderConfig) (model.ToolCallingChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider config is nil")
	}
	switch cfg.Kind {
	case ProviderOpenAI, ProviderCompatible:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Kind)
	}
}

// Generator is the narrow prompt-in/text-out interface the retrieval
// orchestrator consumes.
type Generator interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
	ModelName() string
}

// ChatGenerator adapts an eino chat model to the Generator interface.
type ChatGenerator struct {
	chatModel model.ToolCallingChatModel
	modelName string
}

func NewChatGenerator(chatModel model.ToolCallingChatModel, modelName string) *ChatGenerator {
	return &ChatGenerator{chatModel: chatModel, modelName: modelName}
}

func (g *ChatGenerator) ModelName() string { return g.modelName }

func (g *ChatGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	var opts []model.Option
	if maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(maxTokens))
	}

	resp, err := g.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}
	return resp.Content, nil
}

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	content  string
	err      error
	messages []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.messages = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

func TestChatGeneratorGenerate(t *testing.T) {
	cm := &fakeChatModel{content: "generated answer"}
	g := NewChatGenerator(cm, "test-model")

	out, err := g.Generate(context.Background(), "system prompt", "user prompt", 256)
	require.NoError(t, err)
	assert.Equal(t, "generated answer", out)
	assert.Equal(t, "test-model", g.ModelName())

	require.Len(t, cm.messages, 2)
	assert.Equal(t, schema.System, cm.messages[0].Role)
	assert.Equal(t, "system prompt", cm.messages[0].Content)
	assert.Equal(t, schema.User, cm.messages[1].Role)
	assert.Equal(t, "user prompt", cm.messages[1].Content)
}

func TestChatGeneratorError(t *testing.T) {
	g := NewChatGenerator(&fakeChatModel{err: errors.New("overloaded")}, "m")

	_, err := g.Generate(context.Background(), "s", "u", 0)
	assert.ErrorContains(t, err, "overloaded")
}

func TestNewChatModelUnsupportedProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), &ProviderConfig{Kind: ProviderKind("bogus")})
	assert.Error(t, err)

	_, err = NewChatModel(context.Background(), nil)
	assert.Error(t, err)
}

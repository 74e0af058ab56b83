package ai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply string
	err   error

	mu     sync.Mutex
	inputs [][]*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestChainProviderSendsPromptAsSingleUserMessage(t *testing.T) {
	fake := &fakeChatModel{reply: "I'm here with you."}
	provider, err := NewChainProvider(context.Background(), "ark", fake)
	require.NoError(t, err)

	prompt := "User: my {weird} message\nAssistant (empathetic):"
	text, err := provider.Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "I'm here with you.", text)
	assert.Equal(t, "ark", provider.Name())

	require.Len(t, fake.inputs, 1)
	require.Len(t, fake.inputs[0], 1)
	assert.Equal(t, schema.User, fake.inputs[0][0].Role)
	assert.Equal(t, prompt, fake.inputs[0][0].Content)
}

func TestChainProviderPropagatesModelError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("quota exceeded")}
	provider, err := NewChainProvider(context.Background(), "ark", fake)
	require.NoError(t, err)

	res := NewService(provider).Generate(context.Background(), "hi")

	require.False(t, res.OK())
	assert.Equal(t, FailureProvider, res.Failure.Kind)
	assert.Contains(t, res.Failure.Error(), "quota exceeded")
}

func TestNewChainProviderRequiresModel(t *testing.T) {
	_, err := NewChainProvider(context.Background(), "ark", nil)
	require.Error(t, err)
}

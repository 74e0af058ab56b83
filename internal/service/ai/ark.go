package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/haven/backend/internal/config"
)

// ChainProvider runs the composed prompt through an eino chain ending in a
// chat model, normally the Volcengine Ark model built from configuration.
type ChainProvider struct {
	name  string
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkProvider builds the Ark chat model described by cfg and wraps it.
func NewArkProvider(ctx context.Context, cfg config.AIConfig) (*ChainProvider, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChainProvider(ctx, "ark", chatModel)
}

// NewChainProvider compiles the single-message chain around chatModel.
func NewChainProvider(ctx context.Context, name string, chatModel model.BaseChatModel) (*ChainProvider, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChainProvider{name: name, chain: runnable}, nil
}

func (p *ChainProvider) Name() string {
	return p.name
}

func (p *ChainProvider) Generate(ctx context.Context, text string) (string, error) {
	response, err := p.chain.Invoke(ctx, map[string]any{"prompt": text})
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	if response == nil {
		return "", errors.New("chat chain returned no message")
	}
	return response.Content, nil
}

package ai

import (
	"context"
	"sync"
)

// StaticProvider answers every prompt with a fixed reply or error.
type StaticProvider struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []string
}

// NewUnavailableProvider returns a provider that always fails, which routes
// every non-crisis turn to the template fallback.
func NewUnavailableProvider() *StaticProvider {
	return &StaticProvider{Err: ErrNoProvider}
}

func (p *StaticProvider) Name() string {
	return "static"
}

func (p *StaticProvider) Generate(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	return p.Reply, nil
}

// Prompts returns a copy of every prompt received, in order.
func (p *StaticProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

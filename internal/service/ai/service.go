package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider is a single string-in/string-out text generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// FailureKind classifies why a generation attempt produced no usable text.
type FailureKind string

const (
	FailureProvider    FailureKind = "provider"
	FailureTimeout     FailureKind = "timeout"
	FailureCanceled    FailureKind = "canceled"
	FailureEmpty       FailureKind = "empty"
	FailureUnavailable FailureKind = "unavailable"
)

// ErrNoProvider is reported when no generation backend is configured.
var ErrNoProvider = errors.New("no generation provider configured")

// Failure describes a generation attempt that must be replaced by a fallback
// reply. It is a value, never returned as an error by Service.
type Failure struct {
	Kind     FailureKind
	Provider string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("generation failed (%s, provider=%s)", f.Kind, f.Provider)
	}
	return fmt.Sprintf("generation failed (%s, provider=%s): %v", f.Kind, f.Provider, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is either generated text or a Failure.
type Result struct {
	Text    string
	Failure *Failure
}

// OK reports whether the result carries usable text.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Service normalizes every outcome of a provider call into a Result.
type Service struct {
	provider Provider
}

// NewService wraps provider. A nil provider yields FailureUnavailable on every call.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// ProviderName returns the backing provider name, or "none".
func (s *Service) ProviderName() string {
	if s == nil || s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

type providerOutcome struct {
	text string
	err  error
}

// Generate makes exactly one provider call bounded by ctx. Provider errors,
// panics, empty output and context expiry all come back as a Failure.
func (s *Service) Generate(ctx context.Context, prompt string) Result {
	name := s.ProviderName()
	if s == nil || s.provider == nil {
		return failed(FailureUnavailable, name, ErrNoProvider)
	}
	if err := ctx.Err(); err != nil {
		return failed(contextFailureKind(err), name, err)
	}

	done := make(chan providerOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- providerOutcome{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		text, err := s.provider.Generate(ctx, prompt)
		done <- providerOutcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return failed(contextFailureKind(ctx.Err()), name, ctx.Err())
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) || errors.Is(out.err, context.Canceled) {
				return failed(contextFailureKind(out.err), name, out.err)
			}
			return failed(FailureProvider, name, out.err)
		}
		text := strings.TrimSpace(out.text)
		if text == "" {
			return failed(FailureEmpty, name, nil)
		}
		return Result{Text: text}
	}
}

func contextFailureKind(err error) FailureKind {
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	return FailureTimeout
}

func failed(kind FailureKind, provider string, err error) Result {
	return Result{Failure: &Failure{Kind: kind, Provider: provider, Err: err}}
}

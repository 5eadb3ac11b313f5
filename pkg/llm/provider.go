package llm

import (
	"context"
	"fmt"
)

// Provider is the interface implemented by each LLM backend adapter
type Provider interface {
	// Name returns the provider identifier ("anthropic", "openai", ...)
	Name() string

	// DisplayName returns a human-readable provider name
	DisplayName() string

	// Configured reports whether the adapter has the credentials it needs
	Configured() bool

	// Chat makes a single chat call
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream makes a streaming chat call. The returned channel delivers
	// Chunk events as text arrives and is closed after a terminal Final or
	// Err event.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error)
}

// BalanceProvider is implemented by adapters that can report the account
// balance or remaining credit.
type BalanceProvider interface {
	Balance(ctx context.Context) (string, error)
}

// emitEvent delivers ev unless the consumer's context is gone. Adapters use
// it for every stream send so an abandoned consumer cannot pin the stream
// goroutine. It reports whether the event was delivered.
func emitEvent(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// NewProvider creates a provider adapter by name
func NewProvider(name, apiKey string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

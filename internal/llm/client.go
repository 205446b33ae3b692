package llm

import (
	"context"
	"fmt"
)

// Message roles mirror the chat-completion convention shared by all providers.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat message.
type Message struct {
	Role    string
	Content string
}

// Client is an abstraction over LLM providers.
type Client interface {
	// Complete returns a text completion for the conversation. Images are
	// local file paths attached to the final user message when the provider
	// supports multimodal input.
	Complete(ctx context.Context, messages []Message, images []string) (string, error)
}

// NewClient creates a provider client based on configuration, wrapped with
// the retry policy. The stub provider is returned for unknown providers so
// the agent stays runnable without credentials.
func NewClient(config Config) (Client, error) {
	var inner Client
	var err error

	switch config.Provider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderLocal:
		inner, err = NewOpenAIClient(config)
	case ProviderGemini:
		inner, err = NewGeminiClient(config)
	case ProviderStub, "":
		inner = NewStubClient()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewRetryingClient(inner, config), nil
}

package llm

import "time"

// Provider identifies an LLM backend.
type Provider string

// Supported providers.
const (
	// ProviderOpenAI targets the public OpenAI REST API.
	ProviderOpenAI Provider = "openai"
	// ProviderOpenRouter targets https://openrouter.ai through the
	// OpenAI-compatible surface.
	ProviderOpenRouter Provider = "openrouter"
	// ProviderLocal targets a locally hosted OpenAI-compatible endpoint.
	ProviderLocal Provider = "local"
	// ProviderGemini targets Google Gemini.
	ProviderGemini Provider = "gemini"
	// ProviderStub is the deterministic offline implementation.
	ProviderStub Provider = "stub"
)

// Config holds provider selection, generation parameters and the retry budget
// for a client. It is an immutable snapshot; the agent never mutates it.
type Config struct {
	Provider Provider
	Model    string
	APIKey   string

	// BaseURL overrides the provider endpoint (OpenRouter, local servers).
	BaseURL string
	// ExtraHeaders are attached to every request (e.g. OpenRouter attribution).
	ExtraHeaders map[string]string

	MaxTokens   int
	Temperature float32

	// MaxRetries is the number of retry attempts after the initial call.
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff growth.
	MaxBackoff time.Duration
	// BackoffFactor multiplies the delay between consecutive retries.
	BackoffFactor float64
	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration
}

// DefaultConfig returns the offline stub configuration with the default
// retry budget.
func DefaultConfig() Config {
	return Config{
		Provider:       ProviderStub,
		Model:          "gpt-4o-mini",
		MaxTokens:      2048,
		Temperature:    0.1,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		RequestTimeout: 60 * time.Second,
	}
}

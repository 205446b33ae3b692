package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client for OpenAI-compatible chat completion APIs.
// The same client covers OpenAI itself, OpenRouter and locally hosted
// endpoints; they differ only in base URL and headers.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// headerTransport injects static headers into every request. OpenRouter uses
// HTTP-Referer and X-Title for attribution.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" && config.Provider != ProviderLocal {
		return nil, &ProviderError{Kind: KindAuth, Message: "API key is required"}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	httpClient := &http.Client{Timeout: config.RequestTimeout}
	if len(config.ExtraHeaders) > 0 {
		httpClient.Transport = &headerTransport{headers: config.ExtraHeaders}
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Complete sends the conversation to the chat completion endpoint.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, images []string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    buildChatMessages(messages, images),
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Kind: KindMalformed, Message: "response contained no choices"}
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", &ProviderError{Kind: KindMalformed, Message: "response contained empty content"}
	}
	return content, nil
}

// buildChatMessages converts messages to the wire format, attaching encoded
// images to the final user message.
func buildChatMessages(messages []Message, images []string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	for _, message := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    message.Role,
			Content: message.Content,
		})
	}

	encoded := encodeImages(images)
	if len(encoded) == 0 {
		return out
	}

	parts := make([]openai.ChatMessagePart, 0, len(encoded)+1)
	if len(out) > 0 && out[len(out)-1].Role == openai.ChatMessageRoleUser {
		last := out[len(out)-1]
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: last.Content,
		})
		out = out[:len(out)-1]
	}
	for _, image := range encoded {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: image.DataURL},
		})
	}
	out = append(out, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
	return out
}

// classifyOpenAIError maps transport/API failures onto provider error kinds.
func classifyOpenAIError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &ProviderError{Kind: KindRateLimited, Message: apiErr.Message, Cause: err}
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return &ProviderError{Kind: KindAuth, Message: apiErr.Message, Cause: err}
		case apiErr.HTTPStatusCode >= 500:
			return &ProviderError{Kind: KindTransport, Message: apiErr.Message, Cause: err}
		case apiErr.HTTPStatusCode == http.StatusBadRequest:
			return &ProviderError{Kind: KindAuth, Message: "malformed request: " + apiErr.Message, Cause: err}
		default:
			return &ProviderError{Kind: KindMalformed, Message: apiErr.Message, Cause: err}
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &ProviderError{Kind: KindRateLimited, Message: "rate limited", Cause: err}
		}
		return &ProviderError{Kind: KindTransport, Message: "request failed", Cause: err}
	}

	if errors.Is(err, context.Canceled) {
		return &ProviderError{Kind: KindTransport, Message: "call cancelled", Cause: err}
	}
	return &ProviderError{Kind: KindTransport, Message: "transport failure", Cause: err}
}

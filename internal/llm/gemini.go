package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	client *genai.Client
	config Config
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(config Config) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, &ProviderError{Kind: KindAuth, Message: "API key is required"}
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, &ProviderError{Kind: KindAuth, Message: "failed to create Gemini client", Cause: err}
	}

	return &GeminiClient{client: client, config: config}, nil
}

// Complete sends the conversation as a single multi-part generation request.
// Gemini has no separate system role on this surface, so the system message
// is folded into the prompt text.
func (c *GeminiClient) Complete(ctx context.Context, messages []Message, images []string) (string, error) {
	model := c.client.GenerativeModel(c.config.Model)
	model.SetTemperature(c.config.Temperature)
	if c.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.config.MaxTokens))
	}

	var prompt strings.Builder
	for i, message := range messages {
		if i > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(message.Content)
	}

	parts := []genai.Part{genai.Text(prompt.String())}
	for _, image := range encodeImages(images) {
		parts = append(parts, genai.ImageData(image.Format, image.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return extractGeminiText(resp)
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &ProviderError{Kind: KindMalformed, Message: "no candidates in response"}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &ProviderError{Kind: KindMalformed, Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", &ProviderError{Kind: KindMalformed, Message: "no text parts in response"}
	}
	return strings.Join(parts, ""), nil
}

func classifyGeminiError(err error) *ProviderError {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &ProviderError{Kind: KindRateLimited, Message: apiErr.Message, Cause: err}
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return &ProviderError{Kind: KindAuth, Message: apiErr.Message, Cause: err}
		case apiErr.Code >= 500:
			return &ProviderError{Kind: KindTransport, Message: apiErr.Message, Cause: err}
		case apiErr.Code == http.StatusBadRequest:
			return &ProviderError{Kind: KindAuth, Message: "malformed request: " + apiErr.Message, Cause: err}
		}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Kind: KindTransport, Message: "call cancelled", Cause: err}
	}
	return &ProviderError{Kind: KindTransport, Message: "transport failure", Cause: err}
}

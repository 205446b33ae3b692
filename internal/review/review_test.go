package review

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/freecad-agent/internal/llm"
)

// cannedClient returns a fixed response or error.
type cannedClient struct {
	response string
	err      error
	prompt   string
	images   []string
}

func (c *cannedClient) Complete(_ context.Context, messages []llm.Message, images []string) (string, error) {
	for _, message := range messages {
		c.prompt += message.Content + "\n"
	}
	c.images = images
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func renderFixture(t *testing.T) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "00_front.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))
	return []string{path}
}

func TestReviewParsesStrictJSON(t *testing.T) {
	client := &cannedClient{response: `{"acceptable": false, "needs_additional_views": true, "feedback": "Left face unclear"}`}
	reviewer := NewReviewer(client, nil)

	verdict := reviewer.Review(context.Background(), Request{
		Requirement: "box 10x10x10",
		Iteration:   1,
		RenderPaths: renderFixture(t),
		Succeeded:   true,
	})

	assert.False(t, verdict.Acceptable)
	assert.True(t, verdict.NeedsAdditionalViews)
	assert.Equal(t, "Left face unclear", verdict.Feedback)
	assert.Contains(t, client.prompt, "=== RENDER REVIEW ===")
	assert.Contains(t, client.prompt, "box 10x10x10")
	assert.Len(t, client.images, 1)
}

func TestReviewAcceptableJSON(t *testing.T) {
	client := &cannedClient{response: `{"acceptable": true, "needs_additional_views": false, "feedback": "Matches the brief"}`}
	reviewer := NewReviewer(client, nil)

	verdict := reviewer.Review(context.Background(), Request{
		Requirement: "box",
		RenderPaths: renderFixture(t),
		Succeeded:   true,
	})

	assert.True(t, verdict.Acceptable)
	assert.False(t, verdict.NeedsAdditionalViews)
}

func TestReviewFencedJSON(t *testing.T) {
	client := &cannedClient{response: "```json\n{\"needs_additional_views\": false, \"feedback\": \"fine\"}\n```"}
	reviewer := NewReviewer(client, nil)

	verdict := reviewer.Review(context.Background(), Request{
		Requirement: "box",
		RenderPaths: renderFixture(t),
		Succeeded:   true,
	})

	// acceptable is absent from the JSON: fall back to the execution outcome.
	assert.True(t, verdict.Acceptable)
	assert.Equal(t, "fine", verdict.Feedback)
}

func TestReviewLenientFallbackRequestsViews(t *testing.T) {
	client := &cannedClient{response: "The geometry is unclear, please produce additional projections of the rear."}
	reviewer := NewReviewer(client, nil)

	verdict := reviewer.Review(context.Background(), Request{
		Requirement: "box",
		RenderPaths: renderFixture(t),
		Succeeded:   true,
	})

	assert.True(t, verdict.NeedsAdditionalViews)
	assert.False(t, verdict.Acceptable)
	assert.Contains(t, verdict.Feedback, "unclear")
}

func TestReviewProviderFailureDegrades(t *testing.T) {
	client := &cannedClient{err: &llm.ProviderError{Kind: llm.KindTransport, Message: "boom"}}
	reviewer := NewReviewer(client, nil)

	verdict := reviewer.Review(context.Background(), Request{
		Requirement: "box",
		RenderPaths: renderFixture(t),
		Succeeded:   true,
	})

	assert.True(t, verdict.Acceptable)
	assert.Contains(t, verdict.Feedback, "Render review failed")
}

func TestReviewNoRenders(t *testing.T) {
	reviewer := NewReviewer(&cannedClient{}, nil)

	verdict := reviewer.Review(context.Background(), Request{Requirement: "box", Succeeded: true})

	assert.True(t, verdict.Acceptable)
	assert.Equal(t, "Rendering disabled", verdict.Feedback)
}

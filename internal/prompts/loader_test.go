package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownPrompt(t *testing.T) {
	prompt, err := Get("generation.json", "system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "FreeCAD")
	assert.Contains(t, prompt, "doc.recompute()")
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get("generation.json", "nonexistent")
	assert.Error(t, err)
}

func TestGetUnknownFile(t *testing.T) {
	_, err := Get("missing.json", "system")
	assert.Error(t, err)
}

func TestFormatReplacesPlaceholders(t *testing.T) {
	result := Format("Requirement: {{.Requirement}}\nIteration: {{.Iteration}}", map[string]string{
		"Requirement": "box 10x10x10",
		"Iteration":   "2",
	})
	assert.Equal(t, "Requirement: box 10x10x10\nIteration: 2", result)
}

func TestReviewUserPromptHasMarker(t *testing.T) {
	prompt := MustGet("review.json", "user")
	assert.Contains(t, prompt, "=== RENDER REVIEW ===")
}

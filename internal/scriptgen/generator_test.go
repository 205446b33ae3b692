package scriptgen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/freecad-agent/internal/llm"
)

// recordingClient captures the prompt it receives and replies with a fixed
// fenced script.
type recordingClient struct {
	messages []llm.Message
	images   []string
}

func (c *recordingClient) Complete(_ context.Context, messages []llm.Message, images []string) (string, error) {
	c.messages = messages
	c.images = images
	return "```python\nprint('generated')\n```", nil
}

func userPrompt(t *testing.T, client *recordingClient) string {
	t.Helper()
	require.Len(t, client.messages, 2)
	require.Equal(t, llm.RoleUser, client.messages[1].Role)
	return client.messages[1].Content
}

func TestGenerateFirstIterationHasNoErrorSection(t *testing.T) {
	client := &recordingClient{}
	generator := NewGenerator(client)

	script, err := generator.Generate(context.Background(), Context{Requirement: "box 10x10x10"})

	require.NoError(t, err)
	assert.Equal(t, "print('generated')\n", script)

	prompt := userPrompt(t, client)
	assert.Contains(t, prompt, "=== DESIGN REQUIREMENT ===")
	assert.Contains(t, prompt, "box 10x10x10")
	assert.Contains(t, prompt, "=== ENVIRONMENT ===")
	assert.NotContains(t, prompt, "=== PREVIOUS ERRORS ===")
}

func TestGenerateLaterIterationEmbedsPreviousError(t *testing.T) {
	client := &recordingClient{}
	generator := NewGenerator(client)

	_, err := generator.Generate(context.Background(), Context{
		Requirement:     "box 10x10x10",
		PreviousError:   "Traceback: NameError: name 'Prt' is not defined",
		PreviousRenders: []string{"renders/00_front.png"},
	})

	require.NoError(t, err)
	prompt := userPrompt(t, client)
	assert.Contains(t, prompt, "=== PREVIOUS ERRORS ===")
	assert.Contains(t, prompt, "NameError")
	assert.Equal(t, []string{"renders/00_front.png"}, client.images)
}

func TestGenerateTruncatesLongErrorExcerpt(t *testing.T) {
	client := &recordingClient{}
	generator := NewGenerator(client)

	_, err := generator.Generate(context.Background(), Context{
		Requirement:   "box",
		PreviousError: strings.Repeat("x", maxErrorExcerptChars+500),
	})

	require.NoError(t, err)
	prompt := userPrompt(t, client)
	assert.Contains(t, prompt, "... truncated ...")
	assert.Less(t, len(prompt), maxErrorExcerptChars+1000)
}

func TestGenerateAssemblyAndViewFlags(t *testing.T) {
	client := &recordingClient{}
	generator := NewGenerator(client)

	_, err := generator.Generate(context.Background(), Context{
		Requirement:            "gearbox assembly",
		RequestAdditionalViews: true,
		RequiresAssembly:       true,
	})

	require.NoError(t, err)
	prompt := userPrompt(t, client)
	assert.Contains(t, prompt, "additional projections")
	assert.Contains(t, prompt, "Assembly4")
}

func TestRequiresAssembly(t *testing.T) {
	assert.True(t, RequiresAssembly("a gearbox ASSEMBLY with two shafts"))
	assert.True(t, RequiresAssembly("два вала, сборка"))
	assert.False(t, RequiresAssembly("a simple box"))
}

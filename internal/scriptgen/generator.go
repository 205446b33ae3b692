package scriptgen

import (
	"context"
	"strings"

	"github.com/jonathan/freecad-agent/internal/llm"
	"github.com/jonathan/freecad-agent/internal/prompts"
)

// EnvironmentInfo describes the FreeCAD installation the generated macros
// target. It is embedded verbatim in every prompt.
type EnvironmentInfo struct {
	FreeCADVersion string
	Workbenches    []string
	Notes          string
}

// DefaultEnvironment returns the environment block used when the caller does
// not supply one.
func DefaultEnvironment() EnvironmentInfo {
	return EnvironmentInfo{
		FreeCADVersion: "0.21",
		Workbenches:    []string{"Part", "Sketcher", "TechDraw", "Assembly3", "Assembly4", "A2plus"},
		Notes:          "Headless mode with automatic recompute",
	}
}

// Context carries the per-iteration inputs for one prompt. Only the
// immediately preceding iteration's error and renders are included, never the
// full history.
type Context struct {
	Requirement string
	// PreviousError is the bounded excerpt from the preceding iteration.
	PreviousError string
	// PreviousRenders are paths of the preceding iteration's render images,
	// attached when the provider supports multimodal input.
	PreviousRenders []string
	// ReviewFeedback is the verdict text from the preceding visual review.
	ReviewFeedback         string
	RequestAdditionalViews bool
	RequiresAssembly       bool
}

// maxErrorExcerptChars bounds how much prior-failure text is embedded in a
// prompt to control token cost.
const maxErrorExcerptChars = 4000

// Generator wraps prompting details for the script generation step.
type Generator struct {
	client llm.Client
	env    EnvironmentInfo
}

// NewGenerator creates a Generator backed by the given model client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client, env: DefaultEnvironment()}
}

// Generate asks the model for a macro and extracts the runnable script.
// Provider failures surface as *llm.ProviderError, missing code blocks as
// *ExtractionError.
func (g *Generator) Generate(ctx context.Context, genCtx Context) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompts.MustGet("generation.json", "system")},
		{Role: llm.RoleUser, Content: g.buildUserPrompt(genCtx)},
	}

	response, err := g.client.Complete(ctx, messages, genCtx.PreviousRenders)
	if err != nil {
		return "", err
	}
	return ExtractScript(response)
}

func (g *Generator) buildUserPrompt(genCtx Context) string {
	lines := []string{
		"=== DESIGN REQUIREMENT ===",
		strings.TrimSpace(genCtx.Requirement),
		"",
		"=== ENVIRONMENT ===",
		"FreeCAD version: " + g.env.FreeCADVersion,
		"Installed workbenches: " + strings.Join(g.env.Workbenches, ", "),
		"Notes: " + g.env.Notes,
		"",
	}
	if genCtx.PreviousError != "" {
		lines = append(lines, "=== PREVIOUS ERRORS ===", truncate(genCtx.PreviousError, maxErrorExcerptChars), "")
	}
	if genCtx.ReviewFeedback != "" {
		lines = append(lines, "=== REVIEW FEEDBACK ===", genCtx.ReviewFeedback, "")
	}
	if genCtx.RequestAdditionalViews {
		lines = append(lines, prompts.MustGet("generation.json", "additional_views"))
	}
	if genCtx.RequiresAssembly {
		lines = append(lines, "", prompts.MustGet("generation.json", "assembly_guidance"))
	}
	lines = append(lines, prompts.MustGet("generation.json", "fence_instruction"))
	return strings.Join(lines, "\n")
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "\n... truncated ..."
}

// RequiresAssembly reports whether the requirement references an assembly,
// switching the prompt to assembly guidance.
func RequiresAssembly(requirement string) bool {
	lowered := strings.ToLower(requirement)
	for _, keyword := range []string{"assembly", "assemblies", "сборк"} {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

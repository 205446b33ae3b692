// Package review asks the model to inspect rendered projections and parses
// its verdict.
package review

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/freecad-agent/internal/llm"
	"github.com/jonathan/freecad-agent/internal/prompts"
)

// Verdict is the model's assessment of a rendered result.
type Verdict struct {
	Acceptable           bool   `json:"acceptable"`
	NeedsAdditionalViews bool   `json:"needs_additional_views"`
	Feedback             string `json:"feedback"`
}

// verdictSchema validates the strict JSON form of a review response.
const verdictSchema = `{
	"type": "object",
	"properties": {
		"acceptable": {"type": "boolean"},
		"needs_additional_views": {"type": "boolean"},
		"feedback": {"type": "string"}
	},
	"required": ["needs_additional_views", "feedback"],
	"additionalProperties": true
}`

// Request carries the inputs for one review call.
type Request struct {
	Requirement string
	Iteration   int
	RenderPaths []string
	// Succeeded is the execution outcome, included in the prompt and used as
	// the acceptability fallback for responses missing the field.
	Succeeded bool
}

// Reviewer delegates visual inspection to the model client.
type Reviewer struct {
	client llm.Client
	logger *slog.Logger
	schema *gojsonschema.Schema
}

// NewReviewer creates a Reviewer backed by the given model client.
func NewReviewer(client llm.Client, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(verdictSchema))
	if err != nil {
		// The schema is a compile-time constant; failing to parse it is a bug.
		panic("invalid verdict schema: " + err.Error())
	}
	return &Reviewer{client: client, logger: logger, schema: schema}
}

// Review requests a verdict on the renders. It never fails the iteration: a
// provider error or unusable response degrades to a feedback-only verdict
// whose acceptability mirrors the execution outcome.
func (r *Reviewer) Review(ctx context.Context, req Request) Verdict {
	if len(req.RenderPaths) == 0 {
		return Verdict{Acceptable: req.Succeeded, Feedback: "Rendering disabled"}
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompts.MustGet("review.json", "system")},
		{Role: llm.RoleUser, Content: prompts.Format(prompts.MustGet("review.json", "user"), map[string]string{
			"Requirement": strings.TrimSpace(req.Requirement),
			"Iteration":   strconv.Itoa(req.Iteration),
			"Succeeded":   strconv.FormatBool(req.Succeeded),
		})},
	}

	response, err := r.client.Complete(ctx, messages, req.RenderPaths)
	if err != nil {
		r.logger.Warn("render review failed", "error", err)
		return Verdict{Acceptable: req.Succeeded, Feedback: "Render review failed: " + err.Error()}
	}
	return r.parseResponse(response, req.Succeeded)
}

// parseResponse accepts either the strict JSON verdict or free text. Free
// text falls back to keyword detection, mirroring how models sometimes
// ignore the JSON instruction.
func (r *Reviewer) parseResponse(response string, succeeded bool) Verdict {
	cleaned := cleanJSONBlock(response)

	documentLoader := gojsonschema.NewStringLoader(cleaned)
	if result, err := r.schema.Validate(documentLoader); err == nil && result.Valid() {
		verdict := Verdict{Acceptable: succeeded}
		if err := json.Unmarshal([]byte(cleaned), &verdict); err == nil {
			if !strings.Contains(cleaned, `"acceptable"`) {
				verdict.Acceptable = succeeded && !verdict.NeedsAdditionalViews
			}
			if verdict.Feedback == "" {
				verdict.Feedback = "LLM render review complete"
			}
			return verdict
		}
	}

	lowered := strings.ToLower(response)
	verdict := Verdict{
		Acceptable:           succeeded,
		NeedsAdditionalViews: strings.Contains(lowered, "additional") || strings.Contains(lowered, "extra view"),
		Feedback:             strings.TrimSpace(response),
	}
	if verdict.NeedsAdditionalViews {
		verdict.Acceptable = false
	}
	if verdict.Feedback == "" {
		verdict.Feedback = "Render review response received"
	}
	return verdict
}

// cleanJSONBlock removes markdown code fences models often wrap JSON in.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

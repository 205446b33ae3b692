package llm

import (
	"context"
	"strings"
)

// StubClient is the deterministic offline implementation used for local
// development and tests. It recognizes the prompt sections the agent emits
// and answers with fixed, well-formed responses.
type StubClient struct{}

// NewStubClient returns a stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// Complete returns a canned response derived only from the prompt text.
func (c *StubClient) Complete(_ context.Context, messages []Message, _ []string) (string, error) {
	var prompt strings.Builder
	for _, message := range messages {
		prompt.WriteString(message.Role)
		prompt.WriteString(": ")
		prompt.WriteString(message.Content)
		prompt.WriteString("\n")
	}
	lowered := strings.ToLower(prompt.String())

	switch {
	case strings.Contains(lowered, "=== render review ==="):
		return `{"acceptable": true, "needs_additional_views": false, "feedback": "Rendered projections inspected in stub mode."}`, nil
	case strings.Contains(lowered, "assembly") || strings.Contains(lowered, "сборк"):
		return assemblyTemplate, nil
	case strings.Contains(lowered, "=== previous errors ==="):
		return repairTemplate, nil
	default:
		return defaultTemplate, nil
	}
}

const defaultTemplate = "```python\n" +
	"import FreeCAD as App\n" +
	"import Part\n" +
	"doc = App.newDocument('LLMAgentModel')\n" +
	"box = Part.makeBox(10, 20, 30)\n" +
	"part_obj = doc.addObject('Part::Feature', 'GeneratedBlock')\n" +
	"part_obj.Shape = box\n" +
	"doc.recompute()\n" +
	"App.ActiveDocument = doc\n" +
	"print('Model generated successfully')\n" +
	"```"

const assemblyTemplate = "```python\n" +
	"import FreeCAD as App\n" +
	"import Assembly4\n" +
	"doc = App.newDocument('AssemblyDoc')\n" +
	"doc.recompute()\n" +
	"print('Assembly placeholder created')\n" +
	"```"

const repairTemplate = "```python\n" +
	"import FreeCAD as App\n" +
	"import Part\n" +
	"doc = App.newDocument('LLMAgentModel')\n" +
	"box = Part.makeBox(10, 20, 30)\n" +
	"part_obj = doc.addObject('Part::Feature', 'GeneratedBlock')\n" +
	"part_obj.Shape = box\n" +
	"doc.recompute()\n" +
	"App.ActiveDocument = doc\n" +
	"print('Applied fix for previous error')\n" +
	"```"

package scriptgen

import (
	"log/slog"
	"strings"
)

// ExtractScript pulls the runnable macro out of a model response. The
// convention is a fenced code block; ```python fences are preferred over
// anonymous ones. When a response carries several candidate blocks the first
// non-empty one wins and the ambiguity is logged, not fatal.
func ExtractScript(response string) (string, error) {
	blocks := fencedBlocks(response)
	if len(blocks) == 0 {
		return "", &ExtractionError{Message: "no fenced code block found in model response"}
	}
	if len(blocks) > 1 {
		slog.Warn("model response contained multiple code blocks, using the first well-formed one",
			"blocks", len(blocks))
	}
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			return strings.TrimSpace(block) + "\n", nil
		}
	}
	return "", &ExtractionError{Message: "all fenced code blocks were empty"}
}

// fencedBlocks returns the bodies of all ``` fenced blocks in order. A
// language tag on the opening fence is stripped.
func fencedBlocks(text string) []string {
	var blocks []string
	rest := text
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		rest = rest[start+3:]
		// Drop the language identifier line, if any.
		if newline := strings.Index(rest, "\n"); newline >= 0 {
			firstLine := strings.TrimSpace(rest[:newline])
			if firstLine != "" && !strings.Contains(firstLine, " ") && len(firstLine) < 20 {
				rest = rest[newline+1:]
			}
		}
		end := strings.Index(rest, "```")
		if end < 0 {
			// Unterminated fence: treat the remainder as the block body.
			blocks = append(blocks, rest)
			break
		}
		blocks = append(blocks, rest[:end])
		rest = rest[end+3:]
	}
	return blocks
}

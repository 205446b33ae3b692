// Package scriptgen builds generation prompts and extracts runnable FreeCAD
// macros from model responses.
package scriptgen

import "fmt"

// ExtractionError indicates no runnable script could be extracted from a
// model response.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("script extraction error: %s", e.Message)
}

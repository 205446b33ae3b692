// Package engine executes generated FreeCAD macros as an external process and
// classifies the outcome from captured logs.
package engine

import "fmt"

// NotFoundError indicates the configured FreeCAD executable does not exist.
// The orchestrator treats this as fatal: the run cannot make progress.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("FreeCAD executable not found: %s", e.Path)
}

package engine

import (
	"fmt"
	"strings"
)

// Classifier inspects captured log lines after a clean exit and returns a
// failure description, or "" when the logs look healthy. It is swappable per
// CAD engine; the default recognizes FreeCAD's marker vocabulary.
type Classifier func(logLines []string) string

// DefaultClassifier scans for FreeCAD's error markers. A traceback is
// reported first since it is the most diagnostic.
func DefaultClassifier(logLines []string) string {
	joined := strings.Join(logLines, "\n")
	if strings.Contains(joined, "Traceback") {
		return "FreeCAD reported a traceback"
	}
	for _, marker := range []string{"[ERR]", "Error:", "RuntimeError", "Exception"} {
		if strings.Contains(joined, marker) {
			return fmt.Sprintf("detected error marker %q in FreeCAD log", marker)
		}
	}
	return ""
}

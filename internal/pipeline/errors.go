package pipeline

import "fmt"

// InfrastructureError indicates the run cannot make progress regardless of
// iteration count: missing engine binary, unwritable artifact storage, a
// rejected provider credential. It aborts the run immediately; completed
// iterations are preserved in the report.
type InfrastructureError struct {
	Message string
	Cause   error
}

func (e *InfrastructureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("infrastructure error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("infrastructure error: %s", e.Message)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Cause
}

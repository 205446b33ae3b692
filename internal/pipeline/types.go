// Package pipeline provides the iteration orchestrator: the stateful loop
// driving script generation, execution, rendering and model-guided repair.
package pipeline

// Outcome classifies one iteration.
type Outcome string

// Iteration outcomes. An outcome is set exactly once, by the orchestrator,
// after the iteration's collaborators have completed.
const (
	OutcomeSuccess        Outcome = "success"
	OutcomeScriptError    Outcome = "script_error"
	OutcomeExecutionError Outcome = "execution_error"
	OutcomeNeedsMoreViews Outcome = "needs_more_views"
)

// Status is a run's terminal state.
type Status string

// Run statuses.
const (
	StatusSucceeded  Status = "succeeded"
	StatusExhausted  Status = "exhausted"
	StatusFatalError Status = "fatal_error"
	StatusCancelled  Status = "cancelled"
)

// Iteration records one attempt within a run. Iterations are appended
// strictly in index order and never mutated afterwards.
type Iteration struct {
	Index      int     `json:"index"`
	Outcome    Outcome `json:"outcome"`
	ScriptPath string  `json:"script_path,omitempty"`
	ExitCode   int     `json:"exit_code"`
	DurationMS int64   `json:"duration_ms"`
	// Simulated marks executions produced without a real engine.
	Simulated   bool     `json:"simulated,omitempty"`
	LogExcerpt  string   `json:"log_excerpt,omitempty"`
	RenderPaths []string `json:"render_paths,omitempty"`
	Verdict     string   `json:"verdict,omitempty"`
}

// RunReport is the terminal record of one run. It always includes every
// completed iteration, even when the run aborted fatally.
type RunReport struct {
	RunID       string      `json:"run_id"`
	Requirement string      `json:"requirement"`
	Status      Status      `json:"status"`
	Iterations  []Iteration `json:"iterations"`
	RunDir      string      `json:"run_dir,omitempty"`
}

// Succeeded reports whether the run terminated with a successful iteration.
func (r *RunReport) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// LastError returns the most recent iteration failure text, "" when none.
func (r *RunReport) LastError() string {
	for i := len(r.Iterations) - 1; i >= 0; i-- {
		if r.Iterations[i].Outcome != OutcomeSuccess && r.Iterations[i].LogExcerpt != "" {
			return r.Iterations[i].LogExcerpt
		}
	}
	return ""
}

// ProgressEvent is published after each orchestration step so callers (CLI,
// UI) can surface liveness without polling.
type ProgressEvent struct {
	Iteration int    `json:"iteration"`
	Step      string `json:"step"`
	Message   string `json:"message"`
}

// ProgressCallback receives progress events. It is invoked synchronously from
// the run loop and must be fast.
type ProgressCallback func(event ProgressEvent)

// Progress step names.
const (
	StepGenerate = "generate"
	StepExecute  = "execute"
	StepRender   = "render"
	StepReview   = "review"
	StepComplete = "complete"
)

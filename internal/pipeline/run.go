package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/freecad-agent/internal/artifacts"
	"github.com/jonathan/freecad-agent/internal/config"
	"github.com/jonathan/freecad-agent/internal/engine"
	"github.com/jonathan/freecad-agent/internal/llm"
	"github.com/jonathan/freecad-agent/internal/rendering"
	"github.com/jonathan/freecad-agent/internal/review"
	"github.com/jonathan/freecad-agent/internal/scriptgen"
)

// logExcerptLines bounds the log tail carried into the next prompt and the
// report.
const logExcerptLines = 40

// ScriptBuilder produces a runnable macro for one iteration's context.
type ScriptBuilder interface {
	Generate(ctx context.Context, genCtx scriptgen.Context) (string, error)
}

// ExecutionRunner stores and executes a macro.
type ExecutionRunner interface {
	Execute(ctx context.Context, scriptBody, scriptPath string) (engine.ExecutionResult, error)
}

// RenderProducer generates projection images for one iteration.
type RenderProducer interface {
	Render(ctx context.Context, dir string, iteration int, views []string) []rendering.Result
}

// RenderReviewer asks the model for a verdict on rendered projections.
type RenderReviewer interface {
	Review(ctx context.Context, req review.Request) review.Verdict
}

// Deps allows callers (and tests) to inject collaborators. Nil fields are
// filled with the default implementations built from the configuration.
type Deps struct {
	Client     llm.Client
	Builder    ScriptBuilder
	Runner     ExecutionRunner
	Renderer   RenderProducer
	Reviewer   RenderReviewer
	OnProgress ProgressCallback
	Logger     *slog.Logger
}

// Agent coordinates the model client, execution engine and renderer for a
// run. One Agent may serve many runs; runs share no mutable state.
type Agent struct {
	cfg        config.Config
	builder    ScriptBuilder
	runner     ExecutionRunner
	renderer   RenderProducer
	reviewer   RenderReviewer
	onProgress ProgressCallback
	logger     *slog.Logger
}

// NewAgent wires an Agent from configuration, using deps overrides where
// provided.
func NewAgent(cfg config.Config, deps Deps) (*Agent, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "pipeline")
	}

	client := deps.Client
	if client == nil && (deps.Builder == nil || deps.Reviewer == nil) {
		var err error
		client, err = llm.NewClient(cfg.ClientConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
	}

	builder := deps.Builder
	if builder == nil {
		builder = scriptgen.NewGenerator(client)
	}
	runner := deps.Runner
	if runner == nil {
		var err error
		runner, err = engine.NewRunner(cfg.Engine, logger)
		if err != nil {
			return nil, err
		}
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = rendering.NewRenderer(cfg.Renderer, logger)
	}
	reviewer := deps.Reviewer
	if reviewer == nil {
		reviewer = review.NewReviewer(client, logger)
	}

	return &Agent{
		cfg:        cfg,
		builder:    builder,
		runner:     runner,
		renderer:   renderer,
		reviewer:   reviewer,
		onProgress: deps.OnProgress,
		logger:     logger,
	}, nil
}

// Run executes the full generate-execute-render-review loop for one
// requirement. The returned report is always non-nil and terminal; a non-nil
// error is an *InfrastructureError (the run could not make progress). The
// loop checks ctx at every step boundary: cancellation kills the blocking
// step and finalizes the run as cancelled without appending further
// iterations.
func (a *Agent) Run(ctx context.Context, requirement string) (*RunReport, error) {
	report := &RunReport{Requirement: requirement, Iterations: []Iteration{}}

	if strings.TrimSpace(requirement) == "" {
		report.Status = StatusFatalError
		return report, &InfrastructureError{Message: "requirement must not be empty"}
	}

	store, err := artifacts.NewStore(a.cfg.Pipeline.Workspace)
	if err != nil {
		report.Status = StatusFatalError
		return report, &InfrastructureError{Message: "artifact storage is unavailable", Cause: err}
	}
	report.RunID = store.RunID()
	report.RunDir = store.RunDir()
	logger := a.logger.With("run_id", store.RunID())

	finalize := func(status Status) {
		report.Status = status
		if err := store.WriteReport(report); err != nil {
			logger.Warn("failed to persist run report", "error", err)
		}
	}

	requiresAssembly := scriptgen.RequiresAssembly(requirement)
	var (
		prevError      string
		prevRenders    []string
		reviewFeedback string
		pendingViews   bool
		lastScript     string
	)

	for index := 0; index < a.cfg.Pipeline.MaxIterations; index++ {
		if ctx.Err() != nil {
			finalize(StatusCancelled)
			return report, nil
		}
		logger.Info("starting iteration", "index", index)

		// Generate. A re-run with extra views can reuse the previous script
		// when configured; otherwise every iteration is a fresh pass.
		script := lastScript
		if !(pendingViews && a.cfg.Pipeline.ReuseScriptOnViewRequest && lastScript != "") {
			generated, err := a.builder.Generate(ctx, scriptgen.Context{
				Requirement:     requirement,
				PreviousError:   prevError,
				PreviousRenders: prevRenders,
				ReviewFeedback:  reviewFeedback,
				RequestAdditionalViews: pendingViews ||
					(a.cfg.Pipeline.RequestAdditionalViewsOnFailure && prevError != ""),
				RequiresAssembly: requiresAssembly,
			})
			if err != nil {
				if ctx.Err() != nil {
					finalize(StatusCancelled)
					return report, nil
				}
				var provErr *llm.ProviderError
				if errors.As(err, &provErr) && !provErr.Retryable() {
					finalize(StatusFatalError)
					return report, &InfrastructureError{Message: "model provider rejected the request", Cause: err}
				}
				logger.Warn("script generation failed", "index", index, "error", err)
				report.Iterations = append(report.Iterations, Iteration{
					Index:      index,
					Outcome:    OutcomeScriptError,
					LogExcerpt: err.Error(),
				})
				a.emit(index, StepGenerate, "script generation failed: "+err.Error())
				prevError = err.Error()
				prevRenders = nil
				reviewFeedback = ""
				continue
			}
			script = generated
		}
		lastScript = script
		a.emit(index, StepGenerate, "script ready")

		if ctx.Err() != nil {
			finalize(StatusCancelled)
			return report, nil
		}

		// Execute.
		result, err := a.runner.Execute(ctx, script, store.ScriptPath(index))
		if err != nil {
			if ctx.Err() != nil {
				finalize(StatusCancelled)
				return report, nil
			}
			finalize(StatusFatalError)
			return report, &InfrastructureError{Message: "execution engine failure", Cause: err}
		}
		if err := store.WriteLog(index, result.LogLines); err != nil {
			finalize(StatusFatalError)
			return report, &InfrastructureError{Message: "artifact storage is unavailable", Cause: err}
		}
		a.emit(index, StepExecute, executeMessage(result))

		iteration := Iteration{
			Index:      index,
			ScriptPath: result.ScriptPath,
			ExitCode:   result.ExitCode,
			DurationMS: result.Duration.Milliseconds(),
			Simulated:  result.Simulated,
		}

		if !result.OK() {
			iteration.Outcome = OutcomeExecutionError
			iteration.LogExcerpt = formatExecutionFeedback(index, result)
			report.Iterations = append(report.Iterations, iteration)
			logger.Warn("iteration failed", "index", index, "failure", result.Failure)
			prevError = iteration.LogExcerpt
			prevRenders = nil
			reviewFeedback = ""
			continue
		}

		if ctx.Err() != nil {
			finalize(StatusCancelled)
			return report, nil
		}

		// Render.
		renders := a.renderer.Render(ctx, store.RendersDir(), index, a.cfg.Renderer.Views)
		paths := make([]string, 0, len(renders))
		for _, render := range renders {
			paths = append(paths, render.ImagePath)
		}
		iteration.RenderPaths = paths
		iteration.LogExcerpt = strings.Join(tailLines(result.LogLines, logExcerptLines), "\n")
		a.emit(index, StepRender, fmt.Sprintf("rendered %d views", len(paths)))

		// Without visual review a clean execution is sufficient.
		if !a.cfg.Pipeline.VisualReview {
			iteration.Outcome = OutcomeSuccess
			report.Iterations = append(report.Iterations, iteration)
			logger.Info("iteration succeeded", "index", index)
			a.emit(index, StepComplete, "run succeeded")
			finalize(StatusSucceeded)
			return report, nil
		}

		if ctx.Err() != nil {
			finalize(StatusCancelled)
			return report, nil
		}

		// Review.
		verdict := a.reviewer.Review(ctx, review.Request{
			Requirement: requirement,
			Iteration:   index,
			RenderPaths: paths,
			Succeeded:   true,
		})
		iteration.Verdict = verdict.Feedback
		a.emit(index, StepReview, verdict.Feedback)

		if verdict.Acceptable && !verdict.NeedsAdditionalViews {
			iteration.Outcome = OutcomeSuccess
			report.Iterations = append(report.Iterations, iteration)
			logger.Info("iteration succeeded", "index", index)
			a.emit(index, StepComplete, "run succeeded")
			finalize(StatusSucceeded)
			return report, nil
		}

		iteration.Outcome = OutcomeNeedsMoreViews
		report.Iterations = append(report.Iterations, iteration)
		logger.Info("reviewer requested changes", "index", index, "needs_views", verdict.NeedsAdditionalViews)
		pendingViews = verdict.NeedsAdditionalViews
		reviewFeedback = verdict.Feedback
		prevError = ""
		prevRenders = paths
	}

	finalize(StatusExhausted)
	return report, nil
}

func (a *Agent) emit(iteration int, step, message string) {
	if a.onProgress != nil {
		a.onProgress(ProgressEvent{Iteration: iteration, Step: step, Message: message})
	}
}

func executeMessage(result engine.ExecutionResult) string {
	if result.OK() {
		if result.Simulated {
			return "execution simulated successfully"
		}
		return "execution succeeded"
	}
	return "execution failed: " + result.Failure
}

// formatExecutionFeedback builds the failure summary passed to the next
// prompt and stored in the report.
func formatExecutionFeedback(index int, result engine.ExecutionResult) string {
	lines := []string{fmt.Sprintf("Iteration %d FreeCAD execution failed.", index)}
	if result.Failure != "" {
		lines = append(lines, "Error: "+result.Failure)
	}
	if len(result.LogLines) > 0 {
		lines = append(lines, "Recent FreeCAD output:")
		lines = append(lines, tailLines(result.LogLines, logExcerptLines)...)
	}
	if result.Failure == "" && len(result.LogLines) == 0 {
		lines = append(lines, "No output was captured before the failure.")
	}
	return strings.Join(lines, "\n")
}

func tailLines(lines []string, limit int) []string {
	if len(lines) <= limit {
		return lines
	}
	truncated := len(lines) - limit
	out := make([]string, 0, limit+1)
	out = append(out, fmt.Sprintf("... truncated %d earlier lines ...", truncated))
	return append(out, lines[truncated:]...)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/freecad-agent/internal/config"
)

// ExecutionResult is the outcome of one macro execution. A non-zero exit or a
// recognized log marker is reported through Failure, never as a Go error; the
// orchestrator interprets it.
type ExecutionResult struct {
	ScriptPath string
	ExitCode   int
	Stdout     string
	Stderr     string
	// LogLines is the combined output: stdout, stderr and the FreeCAD log file.
	LogLines []string
	Duration time.Duration
	TimedOut bool
	// Simulated marks results produced without a real engine. Simulated log
	// lines carry a "[simulated]" prefix so stored artifacts are
	// distinguishable from real executions.
	Simulated bool
	// Failure describes why the execution is considered failed, "" on success.
	Failure string
}

// OK reports whether the execution succeeded.
func (r ExecutionResult) OK() bool {
	return r.Failure == ""
}

// Runner writes macros to per-iteration paths and executes them with the
// configured FreeCAD binary, or simulates execution when none is configured.
type Runner struct {
	cfg        config.EngineConfig
	executable string
	classifier Classifier
	logger     *slog.Logger
}

// NewRunner creates a Runner. An empty executable path selects simulation; a
// configured path that cannot be resolved is a *NotFoundError.
func NewRunner(cfg config.EngineConfig, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runner := &Runner{cfg: cfg, classifier: DefaultClassifier, logger: logger}

	if cfg.ExecutablePath == "" {
		logger.Info("no FreeCAD executable configured, using simulated execution")
		return runner, nil
	}

	if _, err := os.Stat(cfg.ExecutablePath); err == nil {
		runner.executable = cfg.ExecutablePath
		return runner, nil
	}
	if found, err := exec.LookPath(cfg.ExecutablePath); err == nil {
		runner.executable = found
		return runner, nil
	}
	return nil, &NotFoundError{Path: cfg.ExecutablePath}
}

// SetClassifier replaces the log classifier. Intended for engines with a
// different marker vocabulary.
func (r *Runner) SetClassifier(classifier Classifier) {
	if classifier != nil {
		r.classifier = classifier
	}
}

// Execute stores the macro at scriptPath and runs it. Returned errors are
// infrastructure failures (unwritable storage, vanished binary, cancellation);
// everything else, including non-zero exits and timeouts, is reported inside
// the result.
func (r *Runner) Execute(ctx context.Context, scriptBody, scriptPath string) (ExecutionResult, error) {
	if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.WriteFile(scriptPath, []byte(scriptBody), 0o644); err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to store macro at %s: %w", scriptPath, err)
	}
	r.logger.Info("stored FreeCAD macro", "path", scriptPath)

	if r.executable == "" {
		return r.simulate(scriptBody, scriptPath), nil
	}
	return r.runProcess(ctx, scriptPath)
}

func (r *Runner) runProcess(ctx context.Context, scriptPath string) (ExecutionResult, error) {
	timeout := time.Duration(r.cfg.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logPath := strings.TrimSuffix(scriptPath, filepath.Ext(scriptPath)) + ".log"
	cmd := exec.CommandContext(runCtx, r.executable, "-l", logPath, scriptPath)
	cmd.Env = os.Environ()
	if r.cfg.Headless {
		cmd.Env = append(cmd.Env, "QT_QPA_PLATFORM=offscreen")
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	// The caller cancelling the run takes precedence over a timeout report.
	if ctx.Err() != nil {
		return ExecutionResult{}, ctx.Err()
	}

	result := ExecutionResult{
		ScriptPath: scriptPath,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Duration:   duration,
	}
	result.LogLines = append(splitLines(result.Stdout), splitLines(result.Stderr)...)
	if logData, err := os.ReadFile(logPath); err == nil {
		result.LogLines = append(result.LogLines, splitLines(string(logData))...)
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		result.Failure = fmt.Sprintf("timeout: execution exceeded %s", timeout)
		return result, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Failure = fmt.Sprintf("FreeCAD exited with code %d", result.ExitCode)
			return result, nil
		}
		if errors.Is(runErr, exec.ErrNotFound) {
			return ExecutionResult{}, &NotFoundError{Path: r.executable}
		}
		return ExecutionResult{}, fmt.Errorf("failed to start FreeCAD: %w", runErr)
	}

	result.Failure = r.classifier(result.LogLines)
	return result, nil
}

// simulate produces a deterministic synthetic result so the agent stays
// runnable without a FreeCAD installation. A macro containing an explicit
// raise statement fails, everything else succeeds.
func (r *Runner) simulate(scriptBody, scriptPath string) ExecutionResult {
	result := ExecutionResult{
		ScriptPath: scriptPath,
		Simulated:  true,
		LogLines: []string{
			fmt.Sprintf("[simulated] Running FreeCAD macro %s", filepath.Base(scriptPath)),
			"[simulated] FreeCAD started in headless mode",
		},
	}
	if strings.Contains(scriptBody, "raise") {
		result.ExitCode = 1
		result.Failure = "script contains explicit raise statement"
		result.LogLines = append(result.LogLines, "[simulated] FreeCAD aborted: "+result.Failure)
		return result
	}
	result.LogLines = append(result.LogLines, "[simulated] FreeCAD finished successfully")
	return result
}

func splitLines(data string) []string {
	if data == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(data, "\n"), "\n")
}

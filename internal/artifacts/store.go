// Package artifacts manages the on-disk tree for a single run: scripts, logs,
// render images and the final JSON report.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store namespaces all artifacts of one run under its own directory so
// concurrent runs never collide.
type Store struct {
	runID  string
	runDir string
}

// NewStore creates the artifact directory for a fresh run under
// <workspace>/runs/<run-id>/.
func NewStore(workspace string) (*Store, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(workspace, "runs", runID)
	if err := os.MkdirAll(filepath.Join(runDir, "renders"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", runDir, err)
	}
	return &Store{runID: runID, runDir: runDir}, nil
}

// RunID returns the unique identifier of this run.
func (s *Store) RunID() string {
	return s.runID
}

// RunDir returns the root directory of this run's artifacts.
func (s *Store) RunDir() string {
	return s.runDir
}

// RendersDir returns the directory render images are written to.
func (s *Store) RendersDir() string {
	return filepath.Join(s.runDir, "renders")
}

// ScriptPath returns the storage path for an iteration's macro.
func (s *Store) ScriptPath(iteration int) string {
	return filepath.Join(s.runDir, fmt.Sprintf("iteration_%02d.py", iteration))
}

// WriteLog persists an iteration's captured output lines.
func (s *Store) WriteLog(iteration int, lines []string) error {
	path := filepath.Join(s.runDir, fmt.Sprintf("iteration_%02d.log", iteration))
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write log %s: %w", path, err)
	}
	return nil
}

// WriteReport serializes the final run report to report.json.
func (s *Store) WriteReport(report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	path := filepath.Join(s.runDir, "report.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

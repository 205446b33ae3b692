// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/freecad-agent/internal/pipeline"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProgress outputs a single progress event as one line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	message := event.Message
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx] + " ..."
	}
	fmt.Fprintf(p.out, "[iteration %d] %-8s %s\n", event.Iteration, event.Step, message)
}

// PrintRunReport outputs a human-readable summary of a finished run.
func (p *Printer) PrintRunReport(report *pipeline.RunReport) {
	if report == nil {
		return
	}

	var sb strings.Builder

	requirement := report.Requirement
	if len(requirement) > 45 {
		requirement = requirement[:42] + "..."
	}
	sb.WriteString(fmt.Sprintf("Requirement: %s\n", requirement))
	sb.WriteString(fmt.Sprintf("Status:      %s\n", statusBadge(report.Status)))
	sb.WriteString(fmt.Sprintf("Iterations:  %d\n", len(report.Iterations)))
	if report.RunDir != "" {
		sb.WriteString(fmt.Sprintf("Artifacts:   %s\n", report.RunDir))
	}
	sb.WriteString("\n")

	count := min(len(report.Iterations), maxItemsToShow)
	start := len(report.Iterations) - count
	if start > 0 {
		sb.WriteString(fmt.Sprintf("... %d earlier iterations omitted\n\n", start))
	}
	for i := start; i < len(report.Iterations); i++ {
		iteration := report.Iterations[i]
		sb.WriteString(fmt.Sprintf("#%d  %s", iteration.Index, outcomeBadge(iteration.Outcome)))
		if iteration.Simulated {
			sb.WriteString(" (simulated)")
		}
		sb.WriteString("\n")
		if iteration.Outcome != pipeline.OutcomeSuccess && iteration.LogExcerpt != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", firstLine(iteration.LogExcerpt)))
		}
		if iteration.Verdict != "" {
			sb.WriteString(fmt.Sprintf("    Verdict: %s\n", firstLine(iteration.Verdict)))
		}
		if len(iteration.RenderPaths) > 0 {
			sb.WriteString(fmt.Sprintf("    Renders: %d views\n", len(iteration.RenderPaths)))
		}
		if i < len(report.Iterations)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("RUN REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

func statusBadge(status pipeline.Status) string {
	switch status {
	case pipeline.StatusSucceeded:
		return "✅ succeeded"
	case pipeline.StatusExhausted:
		return "⚠ exhausted"
	case pipeline.StatusCancelled:
		return "cancelled"
	default:
		return "✗ " + string(status)
	}
}

func outcomeBadge(outcome pipeline.Outcome) string {
	switch outcome {
	case pipeline.OutcomeSuccess:
		return "✅ success"
	case pipeline.OutcomeNeedsMoreViews:
		return "needs more views"
	default:
		return "⚠ " + string(outcome)
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

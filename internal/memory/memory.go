// Package memory appends project knowledge to markdown logs under
// .hookpilot/memory. The files are append-only so concurrent hook
// invocations can write without coordination.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Failure is one classified or unclassified automation failure.
type Failure struct {
	At        time.Time
	Family    string
	Category  string
	Severity  string
	Signature string
	Count     int
	Excerpt   string
	Fix       string
}

// Log writes to <root>/.hookpilot/memory.
type Log struct {
	dir string
}

// New returns a Log for the project at root.
func New(root string) *Log {
	return &Log{dir: filepath.Join(root, ".hookpilot", "memory")}
}

// FailuresPath is the markdown file failures are appended to.
func (l *Log) FailuresPath() string {
	return filepath.Join(l.dir, "failures.md")
}

// AppendFailure adds one entry to failures.md.
func (l *Log) AppendFailure(f Failure) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating memory directory: %w", err)
	}
	file, err := os.OpenFile(l.FailuresPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening failure log: %w", err)
	}
	defer file.Close()

	// A single Write keeps concurrent appends from interleaving.
	if _, err := file.WriteString(formatFailure(f)); err != nil {
		return fmt.Errorf("writing failure log: %w", err)
	}
	return nil
}

func formatFailure(f Failure) string {
	var sb strings.Builder
	category := f.Category
	if category == "" {
		category = "unclassified"
	}
	fmt.Fprintf(&sb, "## %s %s: %s", f.At.UTC().Format(time.RFC3339), f.Family, category)
	if f.Severity != "" {
		fmt.Fprintf(&sb, " (%s)", f.Severity)
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "- Signature: `%s` (seen %d times)\n", f.Signature, f.Count)
	if f.Fix != "" {
		fmt.Fprintf(&sb, "- Fix: %s\n", f.Fix)
	}
	if excerpt := strings.TrimSpace(f.Excerpt); excerpt != "" {
		sb.WriteString("\n```\n")
		sb.WriteString(excerpt)
		sb.WriteString("\n```\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

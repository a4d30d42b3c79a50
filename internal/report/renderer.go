package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// Format names accepted by ForFormat.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ForFormat returns the renderer for a format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return &TextRenderer{}, nil
	case FormatJSON:
		return &JSONRenderer{}, nil
	case FormatMarkdown, "md":
		return &MarkdownRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want text, json or markdown)", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (j *JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// TextRenderer renders a compact plain-text status.
type TextRenderer struct{}

func (t *TextRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&sb, "%-20s %s\n", label, value)
	}
	row("Project:", r.Root)
	row("Mode:", string(r.Mode))
	row("Session:", orNone(r.Session.ID))
	if !r.Session.StartedAt.IsZero() {
		row("Started:", stamp(&r.Session.StartedAt))
	}
	row("Branch:", orNone(r.Git.Branch))
	row("Since checkpoint:", fmt.Sprintf("%d/%d files", r.Thresholds.SinceCheckpoint, r.Thresholds.CheckpointFiles))
	row("Since build:", fmt.Sprintf("%d/%d files", r.Thresholds.SinceBuild, r.Thresholds.BuildFiles))
	row("Session files:", fmt.Sprintf("%d (%d created)", len(r.Files.ModifiedThisSession), len(r.Files.CreatedThisSession)))
	row("Last checkpoint:", stamp(r.Git.LastCheckpointAt))
	row("Commits since merge:", fmt.Sprintf("%d", r.Git.CommitsSinceMerge))
	row("Last build:", stamp(r.Automation.LastBuildRunAt))
	row("Last tests:", stamp(r.Automation.LastTestRunAt))
	row("Failures:", fmt.Sprintf("%d", r.Automation.ConsecutiveFailures))
	if len(r.Automation.SkippedFamilies) > 0 {
		row("Given up on:", strings.Join(r.Automation.SkippedFamilies, ", "))
	}
	if r.Stack != nil {
		row("Stack:", r.Stack.String())
	}
	if len(r.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "  %3dx  %s%s\n", e.Count, e.Signature, flags(e))
		}
	}
	return []byte(sb.String()), nil
}

// MarkdownRenderer renders a Report as a Markdown document.
type MarkdownRenderer struct{}

func (m *MarkdownRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# hookpilot status: %s\n\n", r.Root)

	sb.WriteString("## Session\n\n")
	fmt.Fprintf(&sb, "- Mode: %s\n", r.Mode)
	fmt.Fprintf(&sb, "- Session: %s\n", orNone(r.Session.ID))
	if !r.Session.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "- Started: %s\n", stamp(&r.Session.StartedAt))
	}
	fmt.Fprintf(&sb, "- Branch: %s\n", orNone(r.Git.Branch))
	if r.Stack != nil {
		fmt.Fprintf(&sb, "- Stack: %s\n", r.Stack.String())
	}
	sb.WriteString("\n")

	sb.WriteString("## Files\n\n")
	fmt.Fprintf(&sb, "%d of %d files toward the next checkpoint, %d of %d toward the next build.\n\n",
		r.Thresholds.SinceCheckpoint, r.Thresholds.CheckpointFiles,
		r.Thresholds.SinceBuild, r.Thresholds.BuildFiles)
	if len(r.Files.ModifiedThisSession) == 0 {
		sb.WriteString("_No files changed this session._\n")
	} else {
		created := setOf(r.Files.CreatedThisSession)
		pending := setOf(r.Files.ModifiedSinceCheckpoint)
		sb.WriteString("| Path | Created | Pending checkpoint |\n")
		sb.WriteString("|------|---------|--------------------|\n")
		for _, p := range r.Files.ModifiedThisSession {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", p, yes(created[p]), yes(pending[p]))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Automation\n\n")
	fmt.Fprintf(&sb, "- Last checkpoint: %s\n", stamp(r.Git.LastCheckpointAt))
	fmt.Fprintf(&sb, "- Commits since merge: %d\n", r.Git.CommitsSinceMerge)
	fmt.Fprintf(&sb, "- Last build: %s\n", stamp(r.Automation.LastBuildRunAt))
	fmt.Fprintf(&sb, "- Last tests: %s\n", stamp(r.Automation.LastTestRunAt))
	fmt.Fprintf(&sb, "- Consecutive failures: %d\n", r.Automation.ConsecutiveFailures)
	if len(r.Automation.SkippedFamilies) > 0 {
		fmt.Fprintf(&sb, "- Given up on: %s\n", strings.Join(r.Automation.SkippedFamilies, ", "))
	}
	sb.WriteString("\n")

	sb.WriteString("## Errors\n\n")
	if len(r.Errors) == 0 {
		sb.WriteString("_No failures recorded._\n")
	} else {
		sb.WriteString("| Signature | Count | Last seen | Flags |\n")
		sb.WriteString("|-----------|-------|-----------|-------|\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "| `%s` | %d | %s | %s |\n",
				e.Signature, e.Count, stamp(&e.LastSeen), strings.TrimSpace(flags(e)))
		}
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// Summary is the short session context given to the host at session start.
func Summary(r *Report) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("hookpilot (%s mode) on branch %s", r.Mode, orNone(r.Git.Branch)))
	if n := len(r.Files.ModifiedSinceCheckpoint); n > 0 {
		lines = append(lines, fmt.Sprintf("%d files pending checkpoint (threshold %d)", n, r.Thresholds.CheckpointFiles))
	}
	for _, e := range r.Recurring(3) {
		lines = append(lines, fmt.Sprintf("recurring failure %s seen %d times", e.Signature, e.Count))
	}
	if r.Stack != nil && len(r.Stack.Languages) > 0 {
		lines = append(lines, "detected stack: "+r.Stack.String())
	}
	return strings.Join(lines, "\n")
}

// CompactSummary is what the host should keep across a context compaction.
func CompactSummary(r *Report) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("hookpilot: %d files changed this session, %d pending checkpoint",
		len(r.Files.ModifiedThisSession), len(r.Files.ModifiedSinceCheckpoint)))
	for _, e := range r.Critical() {
		lines = append(lines, "unresolved critical failure: "+e.Signature)
	}
	if len(r.Automation.SkippedFamilies) > 0 {
		lines = append(lines, "given up on: "+strings.Join(r.Automation.SkippedFamilies, ", "))
	}
	return strings.Join(lines, "\n")
}

func flags(e ErrorEntry) string {
	var f []string
	if e.Critical {
		f = append(f, "critical")
	}
	if e.Skipped {
		f = append(f, "skipped")
	}
	if len(f) == 0 {
		return ""
	}
	return "  [" + strings.Join(f, ", ") + "]"
}

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func setOf(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

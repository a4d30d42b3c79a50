// Package hook implements one host hook invocation: it reads the event
// payload, drives the session record through tracking, decision and
// automation, and answers with a protocol response.
package hook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"
)

// maxInputBytes caps stdin reads. Hook payloads are small JSON objects.
const maxInputBytes = 1 << 20

// Input is the JSON object the host writes to stdin.
type Input struct {
	HookEventName  string `json:"hook_event_name"`
	SessionID      string `json:"session_id"`
	CWD            string `json:"cwd"`
	PermissionMode string `json:"permission_mode"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	// Source is why a session started: startup, resume, clear or compact.
	Source       string          `json:"source,omitempty"`
	ToolName     string          `json:"tool_name,omitempty"`
	ToolInput    ToolInput       `json:"tool_input,omitempty"`
	ToolResponse json.RawMessage `json:"tool_response,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ToolInput holds the tool arguments hookpilot cares about.
type ToolInput struct {
	FilePath     string `json:"file_path,omitempty"`
	NotebookPath string `json:"notebook_path,omitempty"`
	Command      string `json:"command,omitempty"`
}

// toolResponse is the union of the response shapes of file and shell tools.
type toolResponse struct {
	Type        string `json:"type"`
	FilePath    string `json:"filePath"`
	Stdout      string `json:"stdout"`
	Stderr      string `json:"stderr"`
	Output      string `json:"output"`
	Error       string `json:"error"`
	ExitCode    *int   `json:"exit_code"`
	Interrupted bool   `json:"interrupted"`
}

func (in Input) response() toolResponse {
	var r toolResponse
	if len(in.ToolResponse) == 0 {
		return r
	}
	if err := json.Unmarshal(in.ToolResponse, &r); err != nil {
		// Some tools answer with a bare string.
		var s string
		if json.Unmarshal(in.ToolResponse, &s) == nil {
			r.Output = s
		}
	}
	return r
}

// Paths returns the files a tool call names.
func (in Input) Paths() []string {
	var paths []string
	for _, p := range []string{in.ToolInput.FilePath, in.ToolInput.NotebookPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Created reports whether a file tool says it created a new file.
func (in Input) Created() bool {
	return in.response().Type == "create"
}

// Output is the combined raw output of a tool call.
func (in Input) Output() string {
	r := in.response()
	var parts []string
	for _, s := range []string{r.Stdout, r.Stderr, r.Output, r.Error, in.Error} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// ExitCode reports the shell exit code when the tool response carries one.
func (in Input) ExitCode() (int, bool) {
	r := in.response()
	if r.ExitCode == nil {
		return 0, false
	}
	return *r.ExitCode, true
}

// ReadInput reads one payload from r. A payload that does not arrive within
// timeout, or that does not parse, yields the zero Input: a missing event is
// treated as an unknown one, never as a failure.
func ReadInput(ctx context.Context, r io.Reader, timeout time.Duration, logger *slog.Logger) Input {
	if logger == nil {
		logger = slog.Default()
	}
	type readResult struct {
		data []byte
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
		ch <- readResult{data, err}
	}()

	var res readResult
	select {
	case res = <-ch:
	case <-time.After(timeout):
		logger.Warn("hook input timed out, using defaults", "timeout", timeout)
		return Input{}
	case <-ctx.Done():
		return Input{}
	}

	if res.err != nil {
		logger.Warn("hook input unreadable, using defaults", "error", res.err)
		return Input{}
	}
	if len(strings.TrimSpace(string(res.data))) == 0 {
		return Input{}
	}
	var in Input
	if err := json.Unmarshal(res.data, &in); err != nil {
		logger.Warn("hook input unmarshal failed, using defaults", "error", err, "bytes", len(res.data))
		return Input{}
	}
	return in
}

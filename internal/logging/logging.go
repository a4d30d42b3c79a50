// Package logging builds the slog logger every command shares. Hook runs
// own stdout for the protocol, so logs never go there.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fakeyudi/hookpilot/internal/state"
)

// FileName is the debug log inside the project's state directory.
const FileName = "hookpilot.log"

// DebugEnv enables debug logging to FileName when set to 1 or true.
const DebugEnv = "HOOKPILOT_DEBUG"

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Enabled reports whether the debug env var asks for debug logging.
func Enabled(getenv func(string) string) bool {
	switch getenv(DebugEnv) {
	case "1", "true", "TRUE", "yes":
		return true
	}
	return false
}

// Setup returns the logger for a project. In debug mode it appends to the
// project's log file at debug level; otherwise it writes warnings to stderr.
// The returned close func is never nil.
func Setup(root string, debug bool, stderr io.Writer) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if !debug {
		return New(stderr, slog.LevelWarn), noop, nil
	}

	dir := filepath.Join(root, state.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return New(stderr, slog.LevelWarn), noop, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return New(stderr, slog.LevelWarn), noop, fmt.Errorf("opening log file: %w", err)
	}
	return New(f, slog.LevelDebug), f.Close, nil
}

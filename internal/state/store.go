package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// DirName is the per-project directory holding state, config and logs.
	DirName = ".hookpilot"
	// FileName is the state record inside DirName.
	FileName = "state.json"
)

// Store persists the SessionState of one project.
//
// There is no locking: each invocation's Load, mutate, Save is the unit of
// consistency, and two racing invocations may lose one update.
type Store interface {
	// Load never fails. A missing, corrupt or foreign-version record yields
	// Default().
	Load() *SessionState
	// Save replaces the record atomically.
	Save(s *SessionState) error
	// Path is the canonical location of the record.
	Path() string
}

// fileStore is the concrete Store writing <root>/.hookpilot/state.json.
type fileStore struct {
	path   string
	logger *slog.Logger
	// rename is os.Rename outside of tests.
	rename func(oldpath, newpath string) error
}

// NewStore returns a Store for the project rooted at projectRoot. Nothing is
// created on disk until the first Save.
func NewStore(projectRoot string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileStore{
		path:   filepath.Join(projectRoot, DirName, FileName),
		logger: logger,
		rename: os.Rename,
	}
}

func (f *fileStore) Path() string { return f.path }

// Load reads and validates the record, falling back to defaults.
func (f *fileStore) Load() *SessionState {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("state unreadable, starting from defaults", "path", f.path, "error", err)
		}
		return Default()
	}

	var s SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		f.logger.Warn("state corrupt, starting from defaults", "path", f.path, "error", err)
		return Default()
	}
	if s.Version != SchemaVersion {
		f.logger.Warn("state schema mismatch, starting from defaults",
			"path", f.path, "version", s.Version, "want", SchemaVersion)
		return Default()
	}
	s.Normalize()
	return &s
}

// Save marshals s to JSON and writes it atomically via a temp file + rename.
func (f *fileStore) Save(s *SessionState) (err error) {
	s.Version = SchemaVersion
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}

	// The temp file lives next to the target so the rename stays on one
	// filesystem and is atomic.
	tmp, err := os.CreateTemp(dir, "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}

	if err = f.rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

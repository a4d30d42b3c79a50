package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Mode is the automation policy.
type Mode string

const (
	// ModeDefault only honours explicit pre-commit/pre-merge gates.
	ModeDefault    Mode = "default"
	ModeAssisted   Mode = "assisted"
	ModeAutonomous Mode = "autonomous"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeDefault, ModeAssisted, ModeAutonomous:
		return true
	}
	return false
}

// Config is the resolved, read-only configuration of one invocation.
type Config struct {
	Mode           Mode
	Features       Features
	Thresholds     Thresholds
	Testing        Testing
	Building       Building
	Git            Git
	Recovery       Recovery
	InputTimeoutMS int
}

// Features toggles whole action families.
type Features struct {
	Checkpoints bool
	Testing     bool
	Building    bool
	Recovery    bool
}

type Thresholds struct {
	CheckpointFiles int
}

type Testing struct {
	Command            string
	RunAfterFileChange bool
	RunBeforeCommit    bool
	TimeoutSeconds     int
}

type Building struct {
	Command               string
	RunAfterFileThreshold int
	RunBeforeCommit       bool
	TimeoutSeconds        int
}

type Git struct {
	AutoMerge            bool
	MainBranch           string
	BlockCommitOnFailure bool
}

type Recovery struct {
	MaxRetriesPerError int
}

// InputTimeout is how long a hook waits for its stdin payload.
func (c Config) InputTimeout() time.Duration {
	return time.Duration(c.InputTimeoutMS) * time.Millisecond
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		Mode: ModeDefault,
		Features: Features{
			Checkpoints: true,
			Testing:     true,
			Building:    true,
			Recovery:    true,
		},
		Thresholds: Thresholds{CheckpointFiles: 5},
		Testing: Testing{
			RunAfterFileChange: false,
			RunBeforeCommit:    true,
			TimeoutSeconds:     300,
		},
		Building: Building{
			RunAfterFileThreshold: 5,
			RunBeforeCommit:       true,
			TimeoutSeconds:        300,
		},
		Git: Git{
			AutoMerge:            false,
			MainBranch:           "main",
			BlockCommitOnFailure: true,
		},
		Recovery:       Recovery{MaxRetriesPerError: 3},
		InputTimeoutMS: 2000,
	}
}

// File is the on-disk form of a config layer. Every field is optional so
// an absent key never overrides a lower layer.
type File struct {
	Mode           string          `json:"mode,omitempty" toml:"mode"`
	Features       *FeaturesFile   `json:"features,omitempty" toml:"features"`
	Thresholds     *ThresholdsFile `json:"thresholds,omitempty" toml:"thresholds"`
	Testing        *TestingFile    `json:"testing,omitempty" toml:"testing"`
	Building       *BuildingFile   `json:"building,omitempty" toml:"building"`
	Git            *GitFile        `json:"git,omitempty" toml:"git"`
	Recovery       *RecoveryFile   `json:"recovery,omitempty" toml:"recovery"`
	InputTimeoutMS int             `json:"input_timeout_ms,omitempty" toml:"input_timeout_ms"`
}

type FeaturesFile struct {
	Checkpoints *bool `json:"checkpoints,omitempty" toml:"checkpoints"`
	Testing     *bool `json:"testing,omitempty" toml:"testing"`
	Building    *bool `json:"building,omitempty" toml:"building"`
	Recovery    *bool `json:"recovery,omitempty" toml:"recovery"`
}

type ThresholdsFile struct {
	CheckpointFiles int `json:"checkpoint_files,omitempty" toml:"checkpoint_files"`
}

type TestingFile struct {
	Command            string `json:"command,omitempty" toml:"command"`
	RunAfterFileChange *bool  `json:"run_after_file_change,omitempty" toml:"run_after_file_change"`
	RunBeforeCommit    *bool  `json:"run_before_commit,omitempty" toml:"run_before_commit"`
	TimeoutSeconds     int    `json:"timeout_seconds,omitempty" toml:"timeout_seconds"`
}

type BuildingFile struct {
	Command               string `json:"command,omitempty" toml:"command"`
	RunAfterFileThreshold int    `json:"run_after_file_threshold,omitempty" toml:"run_after_file_threshold"`
	RunBeforeCommit       *bool  `json:"run_before_commit,omitempty" toml:"run_before_commit"`
	TimeoutSeconds        int    `json:"timeout_seconds,omitempty" toml:"timeout_seconds"`
}

type GitFile struct {
	AutoMerge            *bool  `json:"auto_merge,omitempty" toml:"auto_merge"`
	MainBranch           string `json:"main_branch,omitempty" toml:"main_branch"`
	BlockCommitOnFailure *bool  `json:"block_commit_on_failure,omitempty" toml:"block_commit_on_failure"`
}

type RecoveryFile struct {
	MaxRetriesPerError int `json:"max_retries_per_error,omitempty" toml:"max_retries_per_error"`
}

// LoadGlobal reads ~/.config/hookpilot/config.json.
// Returns nil (no error) if the file is absent.
func LoadGlobal() (*File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return loadFile(filepath.Join(home, ".config", "hookpilot", "config.json"))
}

// LoadProject reads <root>/.hookpilot/config.json, falling back to
// config.toml. Returns nil (no error) if neither exists.
func LoadProject(root string) (*File, error) {
	dir := filepath.Join(root, ".hookpilot")
	f, err := loadFile(filepath.Join(dir, "config.json"))
	if err != nil || f != nil {
		return f, err
	}
	return loadFile(filepath.Join(dir, "config.toml"))
}

// LoadEnvFile loads <root>/.hookpilot/.env into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(root string) error {
	path := filepath.Join(root, ".hookpilot", ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// Resolve loads every layer for the project at root. A layer that fails to
// load is skipped and its error returned alongside the merged result, so a
// broken file never prevents the remaining layers from applying.
func Resolve(root string, getenv func(string) string) (Config, []error) {
	var errs []error
	if err := LoadEnvFile(root); err != nil {
		errs = append(errs, err)
	}
	global, err := LoadGlobal()
	if err != nil {
		errs = append(errs, err)
	}
	project, err := LoadProject(root)
	if err != nil {
		errs = append(errs, err)
	}
	return Merge(global, project, FromEnv(getenv)), errs
}

// loadFile parses a JSON or TOML config layer depending on its extension.
func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var f File
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &f, nil
}

// Merge applies layers over Defaults in order; later layers take precedence.
// Nil layers are skipped.
func Merge(layers ...*File) Config {
	result := Defaults()
	for _, l := range layers {
		if l != nil {
			apply(&result, l)
		}
	}
	return result
}

func apply(c *Config, f *File) {
	if m := Mode(strings.ToLower(f.Mode)); m.Valid() {
		c.Mode = m
	}
	if f.InputTimeoutMS > 0 {
		c.InputTimeoutMS = f.InputTimeoutMS
	}
	if f.Features != nil {
		setBool(&c.Features.Checkpoints, f.Features.Checkpoints)
		setBool(&c.Features.Testing, f.Features.Testing)
		setBool(&c.Features.Building, f.Features.Building)
		setBool(&c.Features.Recovery, f.Features.Recovery)
	}
	if f.Thresholds != nil && f.Thresholds.CheckpointFiles > 0 {
		c.Thresholds.CheckpointFiles = f.Thresholds.CheckpointFiles
	}
	if t := f.Testing; t != nil {
		if t.Command != "" {
			c.Testing.Command = t.Command
		}
		setBool(&c.Testing.RunAfterFileChange, t.RunAfterFileChange)
		setBool(&c.Testing.RunBeforeCommit, t.RunBeforeCommit)
		if t.TimeoutSeconds > 0 {
			c.Testing.TimeoutSeconds = t.TimeoutSeconds
		}
	}
	if b := f.Building; b != nil {
		if b.Command != "" {
			c.Building.Command = b.Command
		}
		if b.RunAfterFileThreshold > 0 {
			c.Building.RunAfterFileThreshold = b.RunAfterFileThreshold
		}
		setBool(&c.Building.RunBeforeCommit, b.RunBeforeCommit)
		if b.TimeoutSeconds > 0 {
			c.Building.TimeoutSeconds = b.TimeoutSeconds
		}
	}
	if g := f.Git; g != nil {
		setBool(&c.Git.AutoMerge, g.AutoMerge)
		if g.MainBranch != "" {
			c.Git.MainBranch = g.MainBranch
		}
		setBool(&c.Git.BlockCommitOnFailure, g.BlockCommitOnFailure)
	}
	if f.Recovery != nil && f.Recovery.MaxRetriesPerError > 0 {
		c.Recovery.MaxRetriesPerError = f.Recovery.MaxRetriesPerError
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// FromEnv builds a config layer from HOOKPILOT_* variables read via getenv.
// It returns nil when none are set.
func FromEnv(getenv func(string) string) *File {
	var f File
	set := false
	if v := getenv("HOOKPILOT_MODE"); v != "" {
		f.Mode = v
		set = true
	}
	if v := getenv("HOOKPILOT_TEST_COMMAND"); v != "" {
		f.Testing = &TestingFile{Command: v}
		set = true
	}
	if v := getenv("HOOKPILOT_BUILD_COMMAND"); v != "" {
		f.Building = &BuildingFile{Command: v}
		set = true
	}
	if v := getenv("HOOKPILOT_CHECKPOINT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Thresholds = &ThresholdsFile{CheckpointFiles: n}
			set = true
		}
	}
	if !set {
		return nil
	}
	return &f
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

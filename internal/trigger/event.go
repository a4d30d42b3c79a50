package trigger

import (
	"path/filepath"
	"strings"
)

// Kind is the hook event that caused an invocation.
type Kind string

const (
	KindSessionStart       Kind = "SessionStart"
	KindSessionEnd         Kind = "SessionEnd"
	KindUserPromptSubmit   Kind = "UserPromptSubmit"
	KindPreToolUse         Kind = "PreToolUse"
	KindPostToolUse        Kind = "PostToolUse"
	KindPostToolUseFailure Kind = "PostToolUseFailure"
	KindPreCompact         Kind = "PreCompact"
	KindStop               Kind = "Stop"
	KindSubagentStop       Kind = "SubagentStop"
	KindNotification       Kind = "Notification"
	KindUnknown            Kind = "unknown"
)

var knownKinds = map[string]Kind{}

func init() {
	for _, k := range []Kind{
		KindSessionStart, KindSessionEnd, KindUserPromptSubmit, KindPreToolUse,
		KindPostToolUse, KindPostToolUseFailure, KindPreCompact, KindStop,
		KindSubagentStop, KindNotification,
	} {
		knownKinds[strings.ToLower(string(k))] = k
	}
}

// ParseKind maps a host event name (case and dash insensitive) to a Kind.
func ParseKind(name string) Kind {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(name))
	if k, ok := knownKinds[key]; ok {
		return k
	}
	return KindUnknown
}

// Gate is an explicit checkpoint in the git workflow the host is about to
// perform.
type Gate string

const (
	GateNone      Gate = ""
	GatePreCommit Gate = "pre-commit"
	GatePreMerge  Gate = "pre-merge"
)

// Event is the Trigger Engine's view of one invocation.
type Event struct {
	Kind     Kind
	ToolName string
	// Paths are the files the tool touched, relative to the project root.
	Paths []string
	// FileChange is set for a successful file-writing tool call.
	FileChange bool
	Gate       Gate
	// CommitBoundary is set after a successful git commit.
	CommitBoundary bool
}

// IsGate reports whether the event is an explicit pre-commit/pre-merge gate.
func (e Event) IsGate() bool {
	return e.Gate != GateNone
}

var fileWritingTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// IsFileWritingTool reports whether the named host tool writes files.
func IsFileWritingTool(name string) bool {
	return fileWritingTools[name]
}

// GateFor inspects a shell command about to run.
func GateFor(command string) Gate {
	switch {
	case runsGit(command, "merge"), strings.Contains(command, "gh pr merge"):
		return GatePreMerge
	case runsGit(command, "commit"):
		return GatePreCommit
	}
	return GateNone
}

// IsCommit reports whether command runs git commit.
func IsCommit(command string) bool {
	return runsGit(command, "commit")
}

// runsGit reports whether any segment of a compound shell command is
// `git [global flags] <sub>`.
func runsGit(command, sub string) bool {
	splitter := strings.NewReplacer("&&", "\n", "||", "\n", ";", "\n", "|", "\n")
	for _, seg := range strings.Split(splitter.Replace(command), "\n") {
		fields := strings.Fields(seg)
		// Leading VAR=value assignments belong to the command.
		i := 0
		for i < len(fields) && strings.Contains(fields[i], "=") {
			i++
		}
		if i >= len(fields) || filepath.Base(fields[i]) != "git" {
			continue
		}
		for j := i + 1; j < len(fields); j++ {
			f := fields[j]
			if f == "-C" || f == "-c" {
				j++
				continue
			}
			if strings.HasPrefix(f, "-") {
				continue
			}
			if f == sub {
				return true
			}
			break
		}
	}
	return false
}

var nonSourceExt = map[string]bool{
	".md": true, ".mdx": true, ".txt": true, ".rst": true, ".adoc": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".cfg": true, ".conf": true, ".env": true, ".lock": true, ".csv": true,
	".svg": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

var nonSourceNames = []string{"license", "readme", "changelog", "contributing", ".gitignore", ".editorconfig"}

// IsSourceFile reports whether path is code rather than documentation or
// configuration.
func IsSourceFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, n := range nonSourceNames {
		if strings.HasPrefix(base, n) {
			return false
		}
	}
	return !nonSourceExt[strings.ToLower(filepath.Ext(base))]
}

// IsIgnoredPath reports paths that are never recorded as activity.
func IsIgnoredPath(path string) bool {
	clean := filepath.ToSlash(filepath.Clean(path))
	for _, dir := range []string{".hookpilot", ".git"} {
		if clean == dir || strings.HasPrefix(clean, dir+"/") || strings.Contains(clean, "/"+dir+"/") {
			return true
		}
	}
	return false
}

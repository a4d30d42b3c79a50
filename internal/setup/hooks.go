// Package setup writes a project's hookpilot config and registers the hook
// commands with the host.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SettingsPath is the host's project settings file, relative to the root.
var SettingsPath = filepath.Join(".claude", "settings.json")

// registration is one hook event hookpilot listens to.
type registration struct {
	event   string
	matcher string
}

var registrations = []registration{
	{event: "SessionStart"},
	{event: "PreToolUse", matcher: "Bash"},
	{event: "PostToolUse", matcher: "Write|Edit|MultiEdit|NotebookEdit|Bash"},
	{event: "PostToolUseFailure", matcher: "Bash"},
	{event: "PreCompact"},
	{event: "Stop"},
}

// hookCommand is the shape of one command hook in the settings file.
type hookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

type hookMatcher struct {
	Matcher string        `json:"matcher,omitempty"`
	Hooks   []hookCommand `json:"hooks"`
}

// InstallHooks merges hookpilot's hook entries into the settings file under
// root, keeping every other key. It reports how many entries it added;
// running it twice adds nothing the second time.
func InstallHooks(root, binary string, timeoutSeconds int) (int, error) {
	path := filepath.Join(root, SettingsPath)

	settings := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &settings); err != nil {
			return 0, fmt.Errorf("malformed settings at %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return 0, fmt.Errorf("reading settings: %w", err)
	}

	hooks := map[string][]hookMatcher{}
	if raw, ok := settings["hooks"]; ok {
		b, err := json.Marshal(raw)
		if err != nil {
			return 0, fmt.Errorf("reading hooks: %w", err)
		}
		if err := json.Unmarshal(b, &hooks); err != nil {
			return 0, fmt.Errorf("malformed hooks in %s: %w", path, err)
		}
	}

	added := 0
	for _, r := range registrations {
		command := binary + " hook " + r.event
		if hasCommand(hooks[r.event], command) {
			continue
		}
		hooks[r.event] = append(hooks[r.event], hookMatcher{
			Matcher: r.matcher,
			Hooks:   []hookCommand{{Type: "command", Command: command, Timeout: timeoutSeconds}},
		})
		added++
	}
	if added == 0 {
		return 0, nil
	}
	settings["hooks"] = hooks

	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return 0, fmt.Errorf("writing settings: %w", err)
	}
	return added, nil
}

func hasCommand(ms []hookMatcher, command string) bool {
	for _, m := range ms {
		for _, h := range m.Hooks {
			if h.Command == command {
				return true
			}
		}
	}
	return false
}

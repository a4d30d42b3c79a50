package setup

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/state"
)

// ConfigPath is the project config file the wizard writes.
func ConfigPath(root string) string {
	return filepath.Join(root, state.DirName, "config.json")
}

// Answers are the choices the wizard asks for.
type Answers struct {
	Mode            config.Mode
	CheckpointFiles int
	TestCommand     string
	BuildCommand    string
	AutoMerge       bool
}

// DefaultAnswers seeds the prompts from c.
func DefaultAnswers(c config.Config) Answers {
	return Answers{
		Mode:            c.Mode,
		CheckpointFiles: c.Thresholds.CheckpointFiles,
		TestCommand:     c.Testing.Command,
		BuildCommand:    c.Building.Command,
		AutoMerge:       c.Git.AutoMerge,
	}
}

// Ask runs the interactive prompts on in/out, using def for every empty
// answer.
func Ask(in io.Reader, out io.Writer, def Answers) (Answers, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			if err == io.EOF {
				return defaultVal, nil
			}
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		d := "n"
		if defaultVal {
			d = "y"
		}
		ans, err := ask(prompt+" (y/n)", d)
		if err != nil {
			return false, err
		}
		ans = strings.ToLower(ans)
		return ans == "y" || ans == "yes", nil
	}

	a := def
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │      hookpilot project setup    │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	mode, err := ask("  Mode (default/assisted/autonomous)", string(def.Mode))
	if err != nil {
		return a, err
	}
	if m := config.Mode(strings.ToLower(mode)); m.Valid() {
		a.Mode = m
	}

	n, err := ask("  Files per checkpoint", strconv.Itoa(def.CheckpointFiles))
	if err != nil {
		return a, err
	}
	if v, convErr := strconv.Atoi(n); convErr == nil && v > 0 {
		a.CheckpointFiles = v
	}

	if a.TestCommand, err = ask("  Test command", def.TestCommand); err != nil {
		return a, err
	}
	if a.BuildCommand, err = ask("  Build command", def.BuildCommand); err != nil {
		return a, err
	}
	if a.AutoMerge, err = askBool("  Merge into the main branch automatically", def.AutoMerge); err != nil {
		return a, err
	}
	fmt.Fprintln(out)
	return a, nil
}

// WriteConfig writes a as the project config file under root.
func WriteConfig(root string, a Answers) (string, error) {
	autoMerge := a.AutoMerge
	f := config.File{
		Mode:       string(a.Mode),
		Thresholds: &config.ThresholdsFile{CheckpointFiles: a.CheckpointFiles},
		Testing:    &config.TestingFile{Command: a.TestCommand},
		Building:   &config.BuildingFile{Command: a.BuildCommand},
		Git:        &config.GitFile{AutoMerge: &autoMerge},
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", err
	}
	path := ConfigPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}

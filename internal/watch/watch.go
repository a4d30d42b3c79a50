// Package watch records file activity that happens outside of hook events,
// such as edits made in an editor while the host session is running.
package watch

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/hookpilot/internal/state"
	"github.com/fakeyudi/hookpilot/internal/trigger"
)

// IgnoreFile is the project-level ignore list read next to .gitignore.
const IgnoreFile = ".hookpilotignore"

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	state.DirName:  true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
}

// Watcher records Write and Create events under Root into Store.
type Watcher struct {
	Root  string
	Store state.Store
	// Ignore holds extra glob patterns on top of .gitignore and IgnoreFile.
	Ignore []string
	Logger *slog.Logger
	// OnRecord, when set, is called after each recorded path.
	OnRecord func(rel string)
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addTree(fw, w.Root); err != nil {
		return err
	}

	patterns, err := LoadIgnorePatterns(w.Root, w.Ignore)
	if err != nil {
		w.logger().Warn("ignore patterns incomplete", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			info, statErr := os.Stat(event.Name)
			if statErr == nil && info.IsDir() {
				if event.Has(fsnotify.Create) && !skipDirs[filepath.Base(event.Name)] {
					if err := w.addTree(fw, event.Name); err != nil {
						w.logger().Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
				}
				continue
			}
			w.record(event.Name, event.Has(fsnotify.Create), patterns)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger().Warn("watcher error", "error", err)
		}
	}
}

// record loads, mutates and saves the record for one changed path.
func (w *Watcher) record(path string, created bool, patterns []string) {
	rel, ok := w.relative(path)
	if !ok || trigger.IsIgnoredPath(rel) || Ignored(rel, patterns) {
		return
	}
	rec := w.Store.Load()
	if created {
		state.RecordCreation(rec, rel)
	} else {
		state.RecordModification(rec, rel)
	}
	if err := w.Store.Save(rec); err != nil {
		w.logger().Error("state not saved", "path", w.Store.Path(), "error", err)
		return
	}
	if w.OnRecord != nil {
		w.OnRecord(rel)
	}
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// Ignored reports whether rel matches any of the glob patterns, by base name
// or by relative path. A trailing slash in a pattern matches a directory
// prefix.
func Ignored(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			dir = strings.TrimPrefix(dir, "/")
			if rel == dir || strings.HasPrefix(rel, dir+"/") || strings.Contains(rel, "/"+dir+"/") {
				return true
			}
			continue
		}
		pattern = strings.TrimPrefix(pattern, "/")
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// LoadIgnorePatterns merges extra with the patterns in .gitignore and
// IgnoreFile under root. Negations are not supported and are dropped.
func LoadIgnorePatterns(root string, extra []string) ([]string, error) {
	patterns := append([]string(nil), extra...)
	for _, name := range []string{".gitignore", IgnoreFile} {
		more, err := readPatternFile(filepath.Join(root, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return patterns, err
		}
		patterns = append(patterns, more...)
	}
	return patterns, nil
}

// readPatternFile returns the non-empty, non-comment lines of a
// gitignore-style file.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

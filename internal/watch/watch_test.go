package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/hookpilot/internal/state"
)

func TestIgnored(t *testing.T) {
	patterns := []string{"*.log", "build/", "/dist/", "docs/*.md"}
	cases := map[string]bool{
		"app.log":         true,
		"sub/app.log":     true,
		"build/out.bin":   true,
		"pkg/build/x.o":   true,
		"dist/bundle.js":  true,
		"docs/intro.md":   true,
		"main.go":         false,
		"builder/main.go": false,
		"docs/api/x.md":   false,
		"logs/readme.txt": false,
	}
	for rel, want := range cases {
		if got := Ignored(rel, patterns); got != want {
			t.Errorf("Ignored(%q) = %v, want %v", rel, got, want)
		}
	}
}

// Feature: hookpilot, Property 9: Extension patterns filter every matching path
func TestIgnoredByExtension(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ext := rapid.StringMatching(`[a-z]{2,4}`).Draw(t, "ext")
		other := rapid.StringMatching(`[a-z]{2,4}`).Draw(t, "other")
		if other == ext {
			other += "x"
		}
		dir := rapid.StringMatching(`[a-z]{1,8}(/[a-z]{1,8})?`).Draw(t, "dir")
		stem := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "stem")
		patterns := []string{"*." + ext}

		if !Ignored(dir+"/"+stem+"."+ext, patterns) {
			t.Fatalf("%s/%s.%s not ignored by %v", dir, stem, ext, patterns)
		}
		if Ignored(dir+"/"+stem+"."+other, patterns) {
			t.Fatalf("%s/%s.%s ignored by %v", dir, stem, other, patterns)
		}
	})
}

func TestLoadIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(".gitignore", "# comment\n\n*.tmp\n!keep.tmp\nbin/\n")
	write(IgnoreFile, "secrets.env\n")

	got, err := LoadIgnorePatterns(root, []string{"*.bak"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"*.bak", "*.tmp", "bin/", "secrets.env"}
	if len(got) != len(want) {
		t.Fatalf("patterns = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("patterns[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	none, err := LoadIgnorePatterns(t.TempDir(), nil)
	if err != nil || len(none) != 0 {
		t.Errorf("empty root = %q, %v", none, err)
	}
}

func TestWatcherRecordsWrites(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := state.NewStore(root, nil)
	recorded := make(chan string, 16)
	w := &Watcher{Root: root, Store: store, OnRecord: func(rel string) {
		select {
		case recorded <- rel:
		default:
		}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Keep writing until the watcher is up and has seen the file.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case rel := <-recorded:
			if rel != "main.go" {
				t.Fatalf("recorded %q, want main.go", rel)
			}
			rec := store.Load()
			if !rec.Files.ModifiedSinceCheckpoint.Has("main.go") {
				t.Errorf("record = %+v", rec.Files)
			}
			if rec.Files.ModifiedThisSession.Has("debug.log") {
				t.Error("ignored file recorded")
			}
			return
		case <-tick.C:
			os.WriteFile(filepath.Join(root, "debug.log"), []byte("x"), 0o644)
			os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644)
		case <-deadline:
			t.Fatal("no event recorded")
		}
	}
}

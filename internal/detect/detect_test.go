package detect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fakeyudi/hookpilot/internal/config"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		langs string
		test  string
		build string
	}{
		{"empty", nil, "unknown", "", ""},
		{"go", []string{"go.mod"}, "go", "go test ./...", "go build ./..."},
		{"node", []string{"package.json"}, "node", "npm test", "npm run build --if-present"},
		{"python has no build", []string{"pyproject.toml"}, "python", "pytest -q", ""},
		{"python then make", []string{"requirements.txt", "Makefile"}, "python, make", "pytest -q", "make"},
		{"go wins over make", []string{"Makefile", "go.mod"}, "go, make", "go test ./...", "go build ./..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tc.files...)
			s := Detect(dir)
			if s.String() != tc.langs {
				t.Errorf("languages = %q, want %q", s.String(), tc.langs)
			}
			if s.TestCommand != tc.test || s.BuildCommand != tc.build {
				t.Errorf("commands = %q / %q, want %q / %q", s.TestCommand, s.BuildCommand, tc.test, tc.build)
			}
		})
	}
}

func TestDetectMissingRoot(t *testing.T) {
	s := Detect(filepath.Join(t.TempDir(), "nope"))
	if len(s.Languages) != 0 {
		t.Errorf("languages = %v, want none", s.Languages)
	}
}

func TestCacheProbesOncePerRoot(t *testing.T) {
	c := NewCache(2, time.Minute)
	probed := map[string]int{}
	c.detect = func(root string) Stack {
		probed[root]++
		return Stack{Languages: []string{"go"}}
	}

	for i := 0; i < 3; i++ {
		c.Get("/a")
		c.Get("/a/")
	}
	if probed["/a"] != 1 {
		t.Errorf("probed /a %d times, want 1", probed["/a"])
	}

	c.Get("/b")
	c.Get("/c")
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	c.Get("/a")
	if probed["/a"] != 2 {
		t.Errorf("evicted root not re-probed: %d", probed["/a"])
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after Purge = %d", c.Len())
	}
}

func TestCacheExpires(t *testing.T) {
	c := NewCache(4, 20*time.Millisecond)
	n := 0
	c.detect = func(string) Stack { n++; return Stack{} }

	c.Get("/x")
	time.Sleep(60 * time.Millisecond)
	c.Get("/x")
	if n != 2 {
		t.Errorf("probes = %d, want 2 after expiry", n)
	}
}

func TestFillCommands(t *testing.T) {
	c := NewCache(2, time.Minute)
	probes := 0
	c.detect = func(string) Stack {
		probes++
		return Stack{TestCommand: "go test ./...", BuildCommand: "go build ./..."}
	}

	var cfg config.Config
	cfg.Testing.Command = "make check"
	got := c.FillCommands("/p", cfg)
	if got.Testing.Command != "make check" {
		t.Errorf("configured test command replaced: %q", got.Testing.Command)
	}
	if got.Building.Command != "go build ./..." {
		t.Errorf("build command = %q, want detected", got.Building.Command)
	}
	if cfg.Building.Command != "" {
		t.Error("input config mutated")
	}

	cfg.Building.Command = "make"
	c.FillCommands("/other", cfg)
	if probes != 1 {
		t.Errorf("probes = %d, want none for a complete config", probes)
	}

	var nilCache *Cache
	if got := nilCache.FillCommands("/p", config.Config{}); got.Testing.Command != "" || got.Building.Command != "" {
		t.Errorf("nil cache filled commands: %+v", got)
	}
}

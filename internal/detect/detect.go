// Package detect probes a project root for well-known build files and
// suggests test and build commands for the stack it finds.
package detect

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fakeyudi/hookpilot/internal/config"
)

// Stack is what a project root looks like.
type Stack struct {
	// Languages are the detected ecosystems in probe order.
	Languages    []string
	TestCommand  string
	BuildCommand string
}

// String lists the languages, or "unknown".
func (s Stack) String() string {
	if len(s.Languages) == 0 {
		return "unknown"
	}
	return strings.Join(s.Languages, ", ")
}

type probe struct {
	language string
	files    []string
	test     string
	build    string
}

// probes run in order; the first match supplies the commands.
var probes = []probe{
	{language: "go", files: []string{"go.mod"}, test: "go test ./...", build: "go build ./..."},
	{language: "rust", files: []string{"Cargo.toml"}, test: "cargo test", build: "cargo build"},
	{language: "node", files: []string{"package.json"}, test: "npm test", build: "npm run build --if-present"},
	{language: "python", files: []string{"pyproject.toml", "setup.py", "requirements.txt"}, test: "pytest -q"},
	{language: "make", files: []string{"Makefile"}, test: "make test", build: "make"},
}

// Detect probes root. It never fails; an unreadable root is an unknown stack.
func Detect(root string) Stack {
	var s Stack
	for _, p := range probes {
		if !anyExists(root, p.files) {
			continue
		}
		s.Languages = append(s.Languages, p.language)
		if s.TestCommand == "" {
			s.TestCommand = p.test
		}
		if s.BuildCommand == "" {
			s.BuildCommand = p.build
		}
	}
	return s
}

func anyExists(root string, names []string) bool {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(root, n)); err == nil {
			return true
		}
	}
	return false
}

// Cache memoizes Detect per root with a bounded size and a TTL, so a
// long-running watcher does not re-probe on every event.
type Cache struct {
	lru    *expirable.LRU[string, Stack]
	detect func(string) Stack
}

// NewCache returns a cache holding at most size roots for ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{
		lru:    expirable.NewLRU[string, Stack](size, nil, ttl),
		detect: Detect,
	}
}

// Get returns the cached stack for root, probing on a miss.
func (c *Cache) Get(root string) Stack {
	key := filepath.Clean(root)
	if s, ok := c.lru.Get(key); ok {
		return s
	}
	s := c.detect(key)
	c.lru.Add(key, s)
	return s
}

// Len is the number of cached roots.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// FillCommands returns cfg with any empty test or build command taken from
// the stack detected at root. A nil cache leaves cfg as is.
func (c *Cache) FillCommands(root string, cfg config.Config) config.Config {
	if c == nil || (cfg.Testing.Command != "" && cfg.Building.Command != "") {
		return cfg
	}
	s := c.Get(root)
	if cfg.Testing.Command == "" {
		cfg.Testing.Command = s.TestCommand
	}
	if cfg.Building.Command == "" {
		cfg.Building.Command = s.BuildCommand
	}
	return cfg
}

// Package recovery classifies raw tool, build and test output against an
// ordered pattern library and derives stable signatures for retry counting.
package recovery

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Unclassified is the signature category of output no pattern matched.
const Unclassified = "unclassified"

// Match is the result of a successful classification.
type Match struct {
	Pattern *Pattern
	// Matched is the substring the winning matcher found.
	Matched   string
	Signature string
}

// Classify returns the first pattern of the default library matching raw.
func Classify(raw string) (*Match, bool) {
	return defaultLibrary.Classify(raw)
}

// Classify walks l in order and returns the first pattern with any matcher
// that finds a substring of raw. Later patterns are never consulted.
func (l Library) Classify(raw string) (*Match, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	for i := range l {
		p := &l[i]
		for _, m := range p.Matchers {
			if found := m.FindString(raw); found != "" {
				return &Match{
					Pattern:   p,
					Matched:   found,
					Signature: Signature(p.Category, found),
				}, true
			}
		}
	}
	return nil, false
}

// SignatureOf classifies raw and returns its signature, falling back to an
// unclassified signature over the whole output.
func (l Library) SignatureOf(raw string) (string, *Match) {
	if m, ok := l.Classify(raw); ok {
		return m.Signature, m
	}
	return Signature(Unclassified, firstLine(raw)), nil
}

// Signature is category plus a short hash of the normalized text, so the
// same failure at a different path or time counts as one issue.
func Signature(category, text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return category + ":" + hex.EncodeToString(sum[:])[:12]
}

var volatile = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`), "<time>"},
	{regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}(?:\.\d+)?\b`), "<time>"},
	{regexp.MustCompile(`(?:[A-Za-z]:)?(?:[\w.@~-]*[/\\])+[\w.@-]+`), "<path>"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8,}\b`), "<hash>"},
	{regexp.MustCompile(`:\d+(?::\d+)?\b`), ":<pos>"},
	{regexp.MustCompile(`\b\d+(?:\.\d+)?m?s\b`), "<dur>"},
	{regexp.MustCompile(`\s+`), " "},
}

// Normalize strips volatile content (timestamps, paths, hashes, line
// positions, durations) and lowercases the result.
func Normalize(text string) string {
	out := text
	for _, v := range volatile {
		out = v.re.ReplaceAllString(out, v.repl)
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

package recovery_test

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/fakeyudi/hookpilot/internal/recovery"
)

func TestClassifyCategories(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		category string
		severity recovery.Severity
	}{
		{"typescript", "src/app.ts(3,5): error TS2322: Type 'string' is not assignable to type 'number'.", "typescript_error", recovery.SeverityHigh},
		{"go compile", "# example.com/app\n./main.go:10:2: undefined: foo\n", "go_compile_error", recovery.SeverityHigh},
		{"rust", "error[E0308]: mismatched types", "rust_compile_error", recovery.SeverityHigh},
		{"merge conflict", "Auto-merging a.go\nCONFLICT (content): Merge conflict in a.go\nAutomatic merge failed; fix conflicts", "git_conflict", recovery.SeverityCritical},
		{"go test", "--- FAIL: TestParse (0.00s)\n    parse_test.go:12: got 1, want 2\nFAIL\n", "test_failure", recovery.SeverityMedium},
		{"jest", "Tests: 2 failed, 10 passed, 12 total", "test_failure", recovery.SeverityMedium},
		{"node module", "Error: Cannot find module 'left-pad'", "module_not_found", recovery.SeverityMedium},
		{"oom", "FATAL ERROR: Reached heap limit Allocation failed - JavaScript heap out of memory", "memory_error", recovery.SeverityCritical},
		{"permission", "open /etc/shadow: permission denied", "permission_error", recovery.SeverityHigh},
		{"network", "dial tcp 127.0.0.1:5432: connect: connection refused", "network_error", recovery.SeverityMedium},
		{"filesystem", "ENOENT: no such file or directory, open '/tmp/missing.json'", "filesystem_error", recovery.SeverityLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := recovery.Classify(tc.raw)
			if !ok {
				t.Fatalf("no match for %q", tc.raw)
			}
			if m.Pattern.Category != tc.category {
				t.Errorf("category = %q, want %q", m.Pattern.Category, tc.category)
			}
			if m.Pattern.Severity != tc.severity {
				t.Errorf("severity = %q, want %q", m.Pattern.Severity, tc.severity)
			}
			if m.Pattern.Fix == "" {
				t.Error("pattern has no fix")
			}
			if !strings.HasPrefix(m.Signature, tc.category+":") {
				t.Errorf("signature %q does not carry its category", m.Signature)
			}
		})
	}
}

// Output that embeds a filesystem error inside a compiler error is a
// compiler error: the earlier pattern wins.
func TestClassifyFirstMatchWins(t *testing.T) {
	raw := "error TS2307: Cannot find module './missing'.\nENOENT: no such file or directory"
	m, ok := recovery.Classify(raw)
	if !ok {
		t.Fatal("no match")
	}
	if m.Pattern.Category != "typescript_error" {
		t.Errorf("category = %q, want typescript_error", m.Pattern.Category)
	}
}

func TestClassifyNoMatch(t *testing.T) {
	for _, raw := range []string{"", "   \n", "the widget broke"} {
		if m, ok := recovery.Classify(raw); ok {
			t.Errorf("Classify(%q) matched %q", raw, m.Pattern.Category)
		}
	}
}

func TestSignatureOfUnclassifiedFallback(t *testing.T) {
	sig, m := recovery.DefaultLibrary().SignatureOf("the widget broke\nsecond line")
	if m != nil {
		t.Fatalf("unexpected match %q", m.Pattern.Category)
	}
	if !strings.HasPrefix(sig, recovery.Unclassified+":") {
		t.Errorf("signature = %q, want unclassified prefix", sig)
	}
	again, _ := recovery.DefaultLibrary().SignatureOf("the widget broke\na different second line")
	if sig != again {
		t.Errorf("unclassified signature depends on later lines: %q vs %q", sig, again)
	}
}

func TestSignatureIgnoresVolatileDetails(t *testing.T) {
	a, _ := recovery.Classify("./main.go:10:2: undefined: foo")
	b, _ := recovery.Classify("./main.go:42:7: undefined: foo")
	c, _ := recovery.Classify("./main.go:10:2: undefined: bar")
	if a.Signature != b.Signature {
		t.Errorf("same error at another position: %q vs %q", a.Signature, b.Signature)
	}
	if a.Signature == c.Signature {
		t.Errorf("different errors share signature %q", a.Signature)
	}
}

func TestNormalize(t *testing.T) {
	x := recovery.Normalize("at /home/a/src/x.go:12:5 2026-01-02T03:04:05Z took 1.5s")
	y := recovery.Normalize("at /tmp/b/y.go:99:1 2025-12-31T23:59:59Z took 30ms")
	if x != y {
		t.Errorf("normalized forms differ:\n%q\n%q", x, y)
	}
	if got := recovery.Normalize("Commit DEADBEEF0123 vs deadbeef9999"); strings.Contains(got, "deadbeef") {
		t.Errorf("hashes survived normalization: %q", got)
	}
	if got := recovery.Normalize("  A\t\tB \n C "); got != "a b c" {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

var signatureShape = regexp.MustCompile(`^[a-z_]+:[0-9a-f]{12}$`)

// Feature: hookpilot, Property 5: Signatures are deterministic and well formed
func TestSignatureDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		category := rapid.StringMatching(`[a-z_]{1,16}`).Draw(t, "category")
		text := rapid.String().Draw(t, "text")
		s1 := recovery.Signature(category, text)
		s2 := recovery.Signature(category, text)
		if s1 != s2 {
			t.Fatalf("signature not deterministic: %q vs %q", s1, s2)
		}
		if !signatureShape.MatchString(s1) {
			t.Fatalf("malformed signature %q", s1)
		}
	})
}

// Feature: hookpilot, Property 6: Classification ignores surrounding noise
func TestClassifyPriorityUnderNoise(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		noise := rapid.StringMatching(`[a-z ]{0,30}`).Draw(t, "noise")
		code := rapid.IntRange(1000, 9999).Draw(t, "code")
		raw := noise + "\nerror TS" + strconv.Itoa(code) + ": bad\n" + noise + "\nENOENT: gone"
		m, ok := recovery.Classify(raw)
		if !ok || m.Pattern.Category != "typescript_error" {
			t.Fatalf("Classify(%q) = %+v, want typescript_error", raw, m)
		}
	})
}

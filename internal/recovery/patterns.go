package recovery

import "regexp"

// Severity ranks how urgently a classified failure needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Pattern is one entry of the recovery library. Entries are immutable and
// shared by every classification in the process.
type Pattern struct {
	Category    string
	Description string
	Matchers    []*regexp.Regexp
	Fix         string
	Severity    Severity
}

// Library is an ordered pattern list; earlier entries win.
type Library []Pattern

func re(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// defaultLibrary is ordered most specific first: compiler and type errors
// come before the generic filesystem and network buckets they often embed.
var defaultLibrary = Library{
	{
		Category:    "git_conflict",
		Description: "Merge conflict in the working tree",
		Matchers:    re(`CONFLICT \([^)]+\):[^\n]*`, `(?i)automatic merge failed[^\n]*`, `(?m)^<{7} [^\n]*`),
		Fix:         "Resolve the conflict markers, stage the files, then commit. Use `git merge --abort` to back out.",
		Severity:    SeverityCritical,
	},
	{
		Category:    "typescript_error",
		Description: "TypeScript compiler error",
		Matchers:    re(`error TS\d{4}:[^\n]*`),
		Fix:         "Fix the reported type error; run `npx tsc --noEmit` to list every remaining error.",
		Severity:    SeverityHigh,
	},
	{
		Category:    "go_compile_error",
		Description: "Go compiler or vet error",
		Matchers: re(
			`(?m)^[^\s:]+\.go:\d+:\d+: [^\n]*`,
			`(?m)^# [\w./-]+\n`,
		),
		Fix:      "Fix the reported compile error; `go vet ./...` lists the rest.",
		Severity: SeverityHigh,
	},
	{
		Category:    "rust_compile_error",
		Description: "Rust compiler error",
		Matchers:    re(`error\[E\d{4}\]:[^\n]*`),
		Fix:         "Follow the compiler suggestion; `cargo check` is faster than a full build.",
		Severity:    SeverityHigh,
	},
	{
		Category:    "type_error",
		Description: "Runtime type error",
		Matchers:    re(`TypeError: [^\n]*`, `(?i)cannot read propert(?:y|ies) of (?:undefined|null)[^\n]*`),
		Fix:         "Guard the value before use or fix the type that flows into it.",
		Severity:    SeverityMedium,
	},
	{
		Category:    "syntax_error",
		Description: "Syntax error",
		Matchers:    re(`SyntaxError: [^\n]*`, `(?i)syntax error[^\n]*`, `(?i)unexpected token[^\n]*`),
		Fix:         "Check the reported line for unbalanced brackets, quotes or a missing separator.",
		Severity:    SeverityHigh,
	},
	{
		Category:    "module_not_found",
		Description: "Missing module or package",
		Matchers: re(
			`Cannot find module '[^']+'`,
			`ModuleNotFoundError: [^\n]*`,
			`no required module provides package [^\s;]+`,
			`(?i)cannot find package[^\n]*`,
		),
		Fix:      "Install the missing dependency or fix the import path.",
		Severity: SeverityMedium,
	},
	{
		Category:    "test_failure",
		Description: "Test suite failure",
		Matchers: re(
			`(?m)^--- FAIL: [^\n]*`,
			`(?m)^FAIL\s[^\n]*`,
			`AssertionError[^\n]*`,
			`(?i)\d+ (?:tests? )?failed[^\n]*`,
			`(?m)^\s*✕ [^\n]*`,
		),
		Fix:      "Read the first failing assertion; fix the code or update the expectation if the behaviour change is intended.",
		Severity: SeverityMedium,
	},
	{
		Category:    "lint_error",
		Description: "Lint rule violation",
		Matchers:    re(`(?i)\d+ problems? \(\d+ errors?`, `(?m)^\s*\d+:\d+\s+error\s+[^\n]*`),
		Fix:         "Run the linter with --fix, then address what remains by hand.",
		Severity:    SeverityLow,
	},
	{
		Category:    "dependency_error",
		Description: "Package manager failure",
		Matchers:    re(`npm ERR! [^\n]*`, `ERESOLVE[^\n]*`, `(?i)peer dep(?:endency)? conflict[^\n]*`),
		Fix:         "Reinstall dependencies cleanly and check for conflicting version ranges.",
		Severity:    SeverityMedium,
	},
	{
		Category:    "memory_error",
		Description: "Process ran out of memory",
		Matchers:    re(`(?i)out of memory[^\n]*`, `(?i)heap out of memory[^\n]*`, `fatal error: runtime: out of memory`),
		Fix:         "Reduce the working set or raise the memory limit (e.g. NODE_OPTIONS=--max-old-space-size).",
		Severity:    SeverityCritical,
	},
	{
		Category:    "permission_error",
		Description: "Permission denied",
		Matchers:    re(`EACCES[^\n]*`, `(?i)permission denied[^\n]*`, `(?i)access denied[^\n]*`),
		Fix:         "Check file ownership and mode; avoid running the tool with sudo.",
		Severity:    SeverityHigh,
	},
	{
		Category:    "network_error",
		Description: "Network or connection failure",
		Matchers: re(
			`ECONNREFUSED[^\n]*`,
			`(?i)connection (?:refused|reset|failed)[^\n]*`,
			`ETIMEDOUT[^\n]*`,
			`(?i)timed? ?out[^\n]*`,
		),
		Fix:      "Make sure the service is running and reachable, then retry.",
		Severity: SeverityMedium,
	},
	{
		Category:    "filesystem_error",
		Description: "File or directory missing",
		Matchers:    re(`ENOENT[^\n]*`, `(?i)no such file or directory[^\n]*`),
		Fix:         "Check the path exists and is relative to the right working directory.",
		Severity:    SeverityLow,
	},
}

// DefaultLibrary returns the built-in pattern library.
func DefaultLibrary() Library {
	return defaultLibrary
}

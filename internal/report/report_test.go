package report_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/detect"
	"github.com/fakeyudi/hookpilot/internal/report"
	"github.com/fakeyudi/hookpilot/internal/state"
)

func sampleRecord() *state.SessionState {
	rec := state.Default()
	rec.Session.ID = "sess-1"
	rec.Session.StartedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	state.RecordCreation(rec, "new.go")
	state.RecordModification(rec, "main.go")
	branch := "feature/x"
	rec.Git.CurrentBranch = &branch
	rec.Git.CommitsSinceMerge = 2

	rec.RecordError("test/test_failure:aaaaaaaaaaaa", false)
	rec.RecordError("test/test_failure:aaaaaaaaaaaa", false)
	rec.RecordError("test/test_failure:aaaaaaaaaaaa", false)
	rec.RecordError("merge/git_conflict:bbbbbbbbbbbb", true)
	rec.RecordError("tool/network_error:cccccccccccc", false)
	rec.Automation.SkippedFamilies["test"] = true
	return rec
}

func sample() *report.Report {
	cfg := config.Defaults()
	cfg.Mode = config.ModeAssisted
	return report.Build("/work/app", sampleRecord(), cfg, &detect.Stack{Languages: []string{"go"}})
}

func TestBuild(t *testing.T) {
	r := sample()
	if r.Git.Branch != "feature/x" || r.Mode != config.ModeAssisted {
		t.Errorf("header = %q %q", r.Git.Branch, r.Mode)
	}
	if got := strings.Join(r.Files.ModifiedThisSession, ","); got != "main.go,new.go" {
		t.Errorf("files = %q", got)
	}
	if r.Thresholds.SinceCheckpoint != 2 || r.Thresholds.CheckpointFiles != 5 {
		t.Errorf("thresholds = %+v", r.Thresholds)
	}
	if len(r.Errors) != 3 || r.Errors[0].Signature != "test/test_failure:aaaaaaaaaaaa" {
		t.Fatalf("errors = %+v", r.Errors)
	}
	if !r.Errors[0].Skipped || r.Errors[0].Count != 3 {
		t.Errorf("top entry = %+v", r.Errors[0])
	}
	if c := r.Critical(); len(c) != 1 || c[0].Signature != "merge/git_conflict:bbbbbbbbbbbb" {
		t.Errorf("critical = %+v", c)
	}
	if rr := r.Recurring(5); len(rr) != 1 {
		t.Errorf("recurring = %+v", rr)
	}
	if strings.Join(r.Automation.SkippedFamilies, ",") != "test" {
		t.Errorf("skipped = %v", r.Automation.SkippedFamilies)
	}
}

func TestBuildDoesNotMutate(t *testing.T) {
	rec := state.Default()
	rec.Files.ModifiedThisSession = nil
	report.Build("/x", rec, config.Defaults(), nil)
	if rec.Files.ModifiedThisSession != nil {
		t.Error("Build normalized the caller's record")
	}
}

func TestFamily(t *testing.T) {
	cases := map[string]string{
		"test/test_failure:abc":  "test",
		"merge/timeout:abc":      "merge",
		"unclassified:abc":       "",
		"typescript_error:a/b/c": "",
		"":                       "",
	}
	for sig, want := range cases {
		if got := report.Family(sig); got != want {
			t.Errorf("Family(%q) = %q, want %q", sig, got, want)
		}
	}
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{"", "text", "JSON", "markdown", "md"} {
		if _, err := report.ForFormat(f); err != nil {
			t.Errorf("ForFormat(%q): %v", f, err)
		}
	}
	if _, err := report.ForFormat("yaml"); err == nil {
		t.Error("ForFormat(yaml) succeeded")
	}
}

func TestTextRenderer(t *testing.T) {
	out, err := (&report.TextRenderer{}).Render(sample())
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	for _, want := range []string{
		"/work/app", "assisted", "feature/x", "2/5 files",
		"Given up on:", "test/test_failure:aaaaaaaaaaaa  [skipped]",
		"merge/git_conflict:bbbbbbbbbbbb  [critical]", "Stack:",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("text output missing %q:\n%s", want, s)
		}
	}
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := (&report.MarkdownRenderer{}).Render(sample())
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	for _, want := range []string{
		"# hookpilot status: /work/app", "## Session", "## Files", "## Automation", "## Errors",
		"| new.go | yes | yes |", "| `test/test_failure:aaaaaaaaaaaa` | 3 |",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("markdown output missing %q:\n%s", want, s)
		}
	}

	empty, _ := (&report.MarkdownRenderer{}).Render(report.Build("/e", state.Default(), config.Defaults(), nil))
	if !strings.Contains(string(empty), "_No failures recorded._") || !strings.Contains(string(empty), "_No files changed this session._") {
		t.Errorf("empty markdown:\n%s", empty)
	}
}

func TestSummaries(t *testing.T) {
	r := sample()
	s := report.Summary(r)
	for _, want := range []string{"assisted mode", "feature/x", "2 files pending checkpoint", "recurring failure test/test_failure:aaaaaaaaaaaa seen 3 times", "detected stack: go"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary missing %q:\n%s", want, s)
		}
	}
	c := report.CompactSummary(r)
	for _, want := range []string{"2 files changed this session", "unresolved critical failure: merge/git_conflict:bbbbbbbbbbbb", "given up on: test"} {
		if !strings.Contains(c, want) {
			t.Errorf("CompactSummary missing %q:\n%s", want, c)
		}
	}
}

// Feature: hookpilot, Property 8: JSON status carries every recorded signature
func TestJSONRendererCarriesErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := state.Default()
		sigs := rapid.SliceOfNDistinct(rapid.StringMatching(`(build|test)/[a-z_]{1,8}:[0-9a-f]{12}`), 0, 6, func(s string) string { return s }).Draw(t, "sigs")
		for _, s := range sigs {
			rec.RecordError(s, false)
		}
		out, err := (&report.JSONRenderer{}).Render(report.Build("/p", rec, config.Defaults(), nil))
		if err != nil {
			t.Fatal(err)
		}
		var back report.Report
		if err := json.Unmarshal(out, &back); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(back.Errors) != len(sigs) {
			t.Fatalf("errors = %d, want %d", len(back.Errors), len(sigs))
		}
	})
}

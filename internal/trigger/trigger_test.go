package trigger_test

import (
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/state"
	"github.com/fakeyudi/hookpilot/internal/trigger"
)

func assisted() config.Config {
	c := config.Defaults()
	c.Mode = config.ModeAssisted
	c.Testing.Command = "go test ./..."
	c.Building.Command = "go build ./..."
	return c
}

func withFiles(n int) *state.SessionState {
	s := state.Default()
	for i := 0; i < n; i++ {
		state.RecordModification(s, fmt.Sprintf("f%d.go", i))
	}
	return s
}

func fileChange(paths ...string) trigger.Event {
	return trigger.Event{Kind: trigger.KindPostToolUse, ToolName: "Edit", Paths: paths, FileChange: true}
}

func TestCheckpointAtThreshold(t *testing.T) {
	cfg := assisted()
	cfg.Features.Building = false

	if plan := trigger.Decide(withFiles(4), cfg, fileChange("f3.go")); plan.Has(trigger.Checkpoint) {
		t.Errorf("checkpoint due below threshold: %v", plan)
	}
	if plan := trigger.Decide(withFiles(5), cfg, fileChange("f4.go")); !plan.Has(trigger.Checkpoint) {
		t.Errorf("checkpoint not due at threshold: %v", plan)
	}
}

func TestDefaultModeOnlyGates(t *testing.T) {
	cfg := assisted()
	cfg.Mode = config.ModeDefault
	cfg.Testing.RunAfterFileChange = true
	cfg.Git.AutoMerge = true

	rec := withFiles(20)
	rec.Git.CommitsSinceMerge = 20
	if plan := trigger.Decide(rec, cfg, fileChange("f1.go")); len(plan) != 0 {
		t.Errorf("default mode fired on file change: %v", plan)
	}
	commit := trigger.Event{Kind: trigger.KindPostToolUse, ToolName: "Bash", CommitBoundary: true}
	if plan := trigger.Decide(rec, cfg, commit); len(plan) != 0 {
		t.Errorf("default mode fired on commit boundary: %v", plan)
	}

	gate := trigger.Event{Kind: trigger.KindPreToolUse, ToolName: "Bash", Gate: trigger.GatePreCommit}
	want := trigger.Plan{trigger.RunBuild, trigger.RunTests}
	if plan := trigger.Decide(rec, cfg, gate); !reflect.DeepEqual(plan, want) {
		t.Errorf("gate plan = %v, want %v", plan, want)
	}
}

func TestTestsOnlyForSourceFiles(t *testing.T) {
	cfg := assisted()
	cfg.Testing.RunAfterFileChange = true
	rec := withFiles(1)

	if plan := trigger.Decide(rec, cfg, fileChange("README.md")); plan.Has(trigger.RunTests) {
		t.Errorf("tests due for a docs change: %v", plan)
	}
	if plan := trigger.Decide(rec, cfg, fileChange("main.go")); !plan.Has(trigger.RunTests) {
		t.Errorf("tests not due for a source change: %v", plan)
	}
	cfg.Testing.RunAfterFileChange = false
	if plan := trigger.Decide(rec, cfg, fileChange("main.go")); plan.Has(trigger.RunTests) {
		t.Errorf("tests due with run_after_file_change off: %v", plan)
	}
}

func TestBuildAfterFileThreshold(t *testing.T) {
	cfg := assisted()
	cfg.Features.Checkpoints = false
	cfg.Building.RunAfterFileThreshold = 3

	if plan := trigger.Decide(withFiles(2), cfg, fileChange("f1.go")); plan.Has(trigger.RunBuild) {
		t.Errorf("build due below threshold: %v", plan)
	}
	if plan := trigger.Decide(withFiles(3), cfg, fileChange("f2.go")); !plan.Has(trigger.RunBuild) {
		t.Errorf("build not due at threshold: %v", plan)
	}
	cfg.Building.Command = ""
	if plan := trigger.Decide(withFiles(3), cfg, fileChange("f2.go")); plan.Has(trigger.RunBuild) {
		t.Errorf("build due without a command: %v", plan)
	}
}

func TestMergeRules(t *testing.T) {
	cfg := assisted()
	cfg.Git.AutoMerge = true
	commit := trigger.Event{Kind: trigger.KindPostToolUse, ToolName: "Bash", CommitBoundary: true}

	rec := state.Default()
	rec.Git.CommitsSinceMerge = cfg.Thresholds.CheckpointFiles
	if plan := trigger.Decide(rec, cfg, commit); !plan.Has(trigger.AutoMerge) {
		t.Errorf("merge not due: %v", plan)
	}

	rec.RecordError("build/git_conflict:abc", true)
	if plan := trigger.Decide(rec, cfg, commit); plan.Has(trigger.AutoMerge) {
		t.Errorf("merge due with an unresolved critical error: %v", plan)
	}

	rec = state.Default()
	rec.Git.CommitsSinceMerge = cfg.Thresholds.CheckpointFiles - 1
	if plan := trigger.Decide(rec, cfg, commit); plan.Has(trigger.AutoMerge) {
		t.Errorf("merge due below commit threshold: %v", plan)
	}

	cfg.Git.AutoMerge = false
	rec.Git.CommitsSinceMerge = 100
	if plan := trigger.Decide(rec, cfg, commit); plan.Has(trigger.AutoMerge) {
		t.Errorf("merge due with auto_merge off: %v", plan)
	}
}

func TestSkippedFamiliesLeftOut(t *testing.T) {
	cfg := assisted()
	gate := trigger.Event{Kind: trigger.KindPreToolUse, ToolName: "Bash", Gate: trigger.GatePreCommit}
	rec := state.Default()
	rec.Automation.SkippedFamilies[string(trigger.RunTests)] = true

	plan := trigger.Decide(rec, cfg, gate)
	if plan.Has(trigger.RunTests) || !plan.Has(trigger.RunBuild) {
		t.Errorf("plan = %v, want build only", plan)
	}
	if s := trigger.Suppressed(rec, cfg, gate); !reflect.DeepEqual(s, trigger.Plan{trigger.RunTests}) {
		t.Errorf("suppressed = %v, want [test]", s)
	}
}

func genEvent(t *rapid.T) trigger.Event {
	ev := trigger.Event{Kind: rapid.SampledFrom([]trigger.Kind{
		trigger.KindPreToolUse, trigger.KindPostToolUse, trigger.KindStop,
	}).Draw(t, "kind")}
	switch rapid.IntRange(0, 2).Draw(t, "shape") {
	case 0:
		ev.FileChange = true
		ev.Paths = rapid.SliceOfN(rapid.SampledFrom([]string{"a.go", "b.ts", "README.md", "go.mod", "x.json"}), 1, 3).Draw(t, "paths")
	case 1:
		ev.Gate = rapid.SampledFrom([]trigger.Gate{trigger.GatePreCommit, trigger.GatePreMerge}).Draw(t, "gate")
	case 2:
		ev.CommitBoundary = true
	}
	return ev
}

func genConfig(t *rapid.T) config.Config {
	c := config.Defaults()
	c.Mode = rapid.SampledFrom([]config.Mode{config.ModeDefault, config.ModeAssisted, config.ModeAutonomous}).Draw(t, "mode")
	c.Thresholds.CheckpointFiles = rapid.IntRange(1, 8).Draw(t, "threshold")
	c.Building.RunAfterFileThreshold = rapid.IntRange(1, 8).Draw(t, "build_threshold")
	c.Testing.RunAfterFileChange = rapid.Bool().Draw(t, "run_after")
	c.Git.AutoMerge = rapid.Bool().Draw(t, "auto_merge")
	if rapid.Bool().Draw(t, "has_test") {
		c.Testing.Command = "make test"
	}
	if rapid.Bool().Draw(t, "has_build") {
		c.Building.Command = "make"
	}
	return c
}

func genRecord(t *rapid.T) *state.SessionState {
	s := withFiles(rapid.IntRange(0, 10).Draw(t, "files"))
	s.Git.CommitsSinceMerge = rapid.IntRange(0, 10).Draw(t, "commits")
	if rapid.Bool().Draw(t, "critical") {
		s.RecordError("test/git_conflict:000000000000", true)
	}
	for _, a := range trigger.Order {
		if rapid.Bool().Draw(t, "skip_"+string(a)) {
			s.Automation.SkippedFamilies[string(a)] = true
		}
	}
	return s
}

// Feature: hookpilot, Property 7: Decide is pure and ordered
func TestDecideDeterministicAndOrdered(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := genRecord(t)
		cfg := genConfig(t)
		ev := genEvent(t)
		before := rec.Clone()

		p1 := trigger.Decide(rec, cfg, ev)
		p2 := trigger.Decide(rec, cfg, ev)
		if !reflect.DeepEqual(p1, p2) {
			t.Fatalf("Decide not deterministic: %v vs %v", p1, p2)
		}
		if !reflect.DeepEqual(rec, before) {
			t.Fatal("Decide mutated the record")
		}

		last := -1
		for _, a := range p1 {
			idx := indexOf(a)
			if idx <= last {
				t.Fatalf("plan %v out of order", p1)
			}
			last = idx
			if rec.IsSkipped(string(a)) {
				t.Fatalf("plan %v includes skipped family %s", p1, a)
			}
		}

		if cfg.Mode == config.ModeDefault && !ev.IsGate() && len(p1) != 0 {
			t.Fatalf("default mode produced %v for a non-gate event", p1)
		}
	})
}

func indexOf(a trigger.Action) int {
	for i, x := range trigger.Order {
		if x == a {
			return i
		}
	}
	return -1
}

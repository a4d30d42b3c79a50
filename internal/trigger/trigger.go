// Package trigger decides which derived actions an event makes due. Decide is
// pure: the same record, config and event always produce the same plan.
package trigger

import (
	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/state"
)

// Action is one action family.
type Action string

const (
	Checkpoint Action = "checkpoint"
	RunBuild   Action = "build"
	RunTests   Action = "test"
	AutoMerge  Action = "merge"
)

// Order is the fixed execution order of a batch: a checkpoint captures state
// before a build or test can fail, and a merge only follows fresh signals.
var Order = []Action{Checkpoint, RunBuild, RunTests, AutoMerge}

// Plan is the ordered set of due actions.
type Plan []Action

// Has reports whether a is in the plan.
func (p Plan) Has(a Action) bool {
	for _, x := range p {
		if x == a {
			return true
		}
	}
	return false
}

// Decide evaluates every rule independently against the record as it is
// after the event's file activity was tracked. Families given up on this
// session are left out.
func Decide(rec *state.SessionState, cfg config.Config, ev Event) Plan {
	var plan Plan
	for _, a := range Due(rec, cfg, ev) {
		if !rec.IsSkipped(string(a)) {
			plan = append(plan, a)
		}
	}
	return plan
}

// Suppressed returns the actions whose rules fired but whose family was
// given up on.
func Suppressed(rec *state.SessionState, cfg config.Config, ev Event) Plan {
	var plan Plan
	for _, a := range Due(rec, cfg, ev) {
		if rec.IsSkipped(string(a)) {
			plan = append(plan, a)
		}
	}
	return plan
}

// Due is Decide without the retry ceiling.
func Due(rec *state.SessionState, cfg config.Config, ev Event) Plan {
	due := map[Action]bool{
		Checkpoint: checkpointDue(rec, cfg),
		RunBuild:   buildDue(rec, cfg, ev),
		RunTests:   testsDue(cfg, ev),
		AutoMerge:  mergeDue(rec, cfg, ev),
	}

	var plan Plan
	for _, a := range Order {
		if due[a] {
			plan = append(plan, a)
		}
	}
	return plan
}

func checkpointDue(rec *state.SessionState, cfg config.Config) bool {
	if cfg.Mode == config.ModeDefault || !cfg.Features.Checkpoints {
		return false
	}
	return state.CountSinceCheckpoint(rec) >= cfg.Thresholds.CheckpointFiles
}

func buildDue(rec *state.SessionState, cfg config.Config, ev Event) bool {
	if !cfg.Features.Building || cfg.Building.Command == "" {
		return false
	}
	if ev.IsGate() {
		return cfg.Building.RunBeforeCommit
	}
	if cfg.Mode == config.ModeDefault || !ev.FileChange {
		return false
	}
	return cfg.Building.RunAfterFileThreshold > 0 &&
		state.CountSinceBuild(rec) >= cfg.Building.RunAfterFileThreshold
}

func testsDue(cfg config.Config, ev Event) bool {
	if !cfg.Features.Testing || cfg.Testing.Command == "" {
		return false
	}
	if ev.IsGate() {
		return cfg.Testing.RunBeforeCommit
	}
	if cfg.Mode == config.ModeDefault || !ev.FileChange || !cfg.Testing.RunAfterFileChange {
		return false
	}
	for _, p := range ev.Paths {
		if IsSourceFile(p) {
			return true
		}
	}
	return false
}

func mergeDue(rec *state.SessionState, cfg config.Config, ev Event) bool {
	if cfg.Mode == config.ModeDefault || !ev.CommitBoundary || !cfg.Git.AutoMerge {
		return false
	}
	if rec.Git.CommitsSinceMerge < cfg.Thresholds.CheckpointFiles {
		return false
	}
	return !rec.HasUnresolvedCritical()
}

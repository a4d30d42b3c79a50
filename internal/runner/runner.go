// Package runner executes the actions the trigger engine found due, and
// folds their outcome back into the session record.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/memory"
	"github.com/fakeyudi/hookpilot/internal/recovery"
	"github.com/fakeyudi/hookpilot/internal/state"
	"github.com/fakeyudi/hookpilot/internal/trigger"
)

// MaxOutput is how much raw command output is kept for messages.
const MaxOutput = 2000

// ErrNoCommand is the skip reason of a build or test family with no command.
var ErrNoCommand = errors.New("no command configured")

// Status is the result of one action.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusSkipped means the action was not attempted.
	StatusSkipped Status = "skipped"
)

// FailureRecorder receives every failure the runner classifies.
type FailureRecorder interface {
	AppendFailure(f memory.Failure) error
}

// Runner carries the collaborators of one invocation.
type Runner struct {
	Root     string
	Config   config.Config
	Exec     Exec
	Library  recovery.Library
	Failures FailureRecorder
	Logger   *slog.Logger
	// Now stamps run times; time.Now when nil.
	Now func() time.Time
}

// Result describes one executed or skipped action.
type Result struct {
	Action trigger.Action
	Status Status
	// Reason explains a skip.
	Reason    string
	Output    string
	Category  string
	Severity  recovery.Severity
	Fix       string
	Signature string
	// Count is how often Signature has been seen, after this failure.
	Count int
	// GaveUp is set when this failure pushed the family past its retry
	// ceiling.
	GaveUp bool
}

// Outcome is the result of a whole batch, in execution order.
type Outcome struct {
	Results []Result
}

// Failed reports whether any action in the batch failed.
func (o Outcome) Failed() bool {
	for _, r := range o.Results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Result returns the result for a, if a was part of the batch.
func (o Outcome) Result(a trigger.Action) (Result, bool) {
	for _, r := range o.Results {
		if r.Action == a {
			return r, true
		}
	}
	return Result{}, false
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run executes plan in order against rec. A failing action never aborts the
// rest of the batch, except that a merge is never attempted after a failed
// build or test run in the same batch.
func (r *Runner) Run(ctx context.Context, plan trigger.Plan, rec *state.SessionState) Outcome {
	var out Outcome
	gateFailed := false
	rec.Normalize()

	for _, a := range orderedPlan(plan) {
		if rec.IsSkipped(string(a)) {
			out.Results = append(out.Results, Result{Action: a, Status: StatusSkipped,
				Reason: "skipped after max retries"})
			continue
		}
		if a == trigger.AutoMerge && gateFailed {
			out.Results = append(out.Results, Result{Action: a, Status: StatusSkipped,
				Reason: "build or tests failed in this batch"})
			continue
		}

		res, reason, ok := r.execute(ctx, a, rec)
		if !ok {
			out.Results = append(out.Results, Result{Action: a, Status: StatusSkipped, Reason: reason})
			continue
		}

		result := Result{Action: a, Output: Truncate(res.Output, MaxOutput)}
		if res.Failed() {
			r.recordFailure(a, res, rec, &result)
			if a == trigger.RunBuild || a == trigger.RunTests {
				gateFailed = true
			}
		} else {
			result.Status = StatusSucceeded
			r.recordSuccess(a, res, rec)
		}
		r.logger().Info("action finished", "action", a, "status", result.Status,
			"signature", result.Signature)
		out.Results = append(out.Results, result)
	}
	return out
}

// orderedPlan re-sorts plan into the fixed batch order.
func orderedPlan(plan trigger.Plan) []trigger.Action {
	var ordered []trigger.Action
	for _, a := range trigger.Order {
		if plan.Has(a) {
			ordered = append(ordered, a)
		}
	}
	return ordered
}

// execute runs the external command(s) behind a. ok is false when there was
// nothing to run.
func (r *Runner) execute(ctx context.Context, a trigger.Action, rec *state.SessionState) (ExecResult, string, bool) {
	switch a {
	case trigger.Checkpoint:
		return r.checkpoint(ctx, rec), "", true
	case trigger.RunBuild:
		if r.Config.Building.Command == "" {
			return ExecResult{}, ErrNoCommand.Error(), false
		}
		return r.shell(ctx, r.Config.Building.Command, r.Config.Building.TimeoutSeconds), "", true
	case trigger.RunTests:
		if r.Config.Testing.Command == "" {
			return ExecResult{}, ErrNoCommand.Error(), false
		}
		return r.shell(ctx, r.Config.Testing.Command, r.Config.Testing.TimeoutSeconds), "", true
	case trigger.AutoMerge:
		return r.merge(ctx, rec)
	}
	return ExecResult{}, fmt.Sprintf("unknown action %q", a), false
}

func (r *Runner) shell(ctx context.Context, command string, timeoutSeconds int) ExecResult {
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		defer cancel()
	}
	return Shell(ctx, r.Exec, r.Root, command)
}

func (r *Runner) git(ctx context.Context, args ...string) ExecResult {
	return r.Exec(ctx, r.Root, "git", args...)
}

// checkpoint commits everything in the work tree except hookpilot's own
// scratch directory.
func (r *Runner) checkpoint(ctx context.Context, rec *state.SessionState) ExecResult {
	if res := r.git(ctx, "add", "-A", "--", ".", ":(exclude)"+state.DirName); res.Failed() {
		return res
	}
	msg := fmt.Sprintf("checkpoint: %d files", state.CountSinceCheckpoint(rec))
	res := r.git(ctx, "commit", "-m", msg)
	if res.Failed() && res.Err == nil && nothingToCommit(res) {
		// The window is stale, not broken; clearing it is still correct.
		return ExecResult{Output: res.Output}
	}
	return res
}

func nothingToCommit(res ExecResult) bool {
	return strings.Contains(res.Output, "nothing to commit")
}

func (r *Runner) merge(ctx context.Context, rec *state.SessionState) (ExecResult, string, bool) {
	mainBranch := r.Config.Git.MainBranch
	if rec.Git.CurrentBranch == nil {
		return ExecResult{}, "current branch unknown", false
	}
	branch := *rec.Git.CurrentBranch
	if branch == mainBranch {
		return ExecResult{}, "already on " + mainBranch, false
	}

	if res := r.git(ctx, "switch", mainBranch); res.Failed() {
		return res, "", true
	}
	res := r.git(ctx, "merge", "--no-ff", branch)
	if res.Failed() {
		r.git(ctx, "merge", "--abort")
		r.git(ctx, "switch", branch)
		return res, "", true
	}
	rec.Git.CurrentBranch = &mainBranch
	return res, "", true
}

func (r *Runner) recordSuccess(a trigger.Action, res ExecResult, rec *state.SessionState) {
	now := r.now()
	rec.Automation.FailuresByFamily[string(a)] = 0
	rec.Automation.ConsecutiveFailures = totalFailures(rec)

	switch a {
	case trigger.Checkpoint:
		state.ClearCheckpointWindow(rec)
		rec.Git.LastCheckpointAt = &now
		if !nothingToCommit(res) {
			rec.Git.CommitsSinceMerge++
		}
	case trigger.RunBuild:
		state.ClearBuildWindow(rec)
		rec.Automation.LastBuildRunAt = &now
		rec.Errors.UnresolvedCritical = map[string]time.Time{}
	case trigger.RunTests:
		rec.Automation.LastTestRunAt = &now
		rec.Errors.UnresolvedCritical = map[string]time.Time{}
	case trigger.AutoMerge:
		rec.Git.CommitsSinceMerge = 0
	}
}

// recordFailure classifies the output, counts its signature and gives up on
// the family once the count passes the retry ceiling.
func (r *Runner) recordFailure(a trigger.Action, res ExecResult, rec *state.SessionState, result *Result) {
	result.Status = StatusFailed

	var sig string
	switch {
	case res.TimedOut():
		result.Category = "timeout"
		result.Severity = recovery.SeverityHigh
		result.Fix = "The command exceeded its timeout; look for a hung test or raise timeout_seconds."
		sig = recovery.Signature("timeout", string(a))
	case r.Config.Features.Recovery:
		var m *recovery.Match
		lib := r.Library
		if lib == nil {
			lib = recovery.DefaultLibrary()
		}
		sig, m = lib.SignatureOf(res.Output + errText(res.Err))
		if m != nil {
			result.Category = m.Pattern.Category
			result.Severity = m.Pattern.Severity
			result.Fix = m.Pattern.Fix
		} else {
			result.Category = recovery.Unclassified
		}
	default:
		result.Category = recovery.Unclassified
		sig = recovery.Signature(recovery.Unclassified, res.Output)
	}

	// Families keep separate signatures even when they share a command.
	result.Signature = string(a) + "/" + sig
	result.Count = rec.RecordError(result.Signature, result.Severity == recovery.SeverityCritical)

	rec.Automation.FailuresByFamily[string(a)]++
	rec.Automation.ConsecutiveFailures = totalFailures(rec)
	if result.Count > r.Config.Recovery.MaxRetriesPerError {
		rec.Automation.SkippedFamilies[string(a)] = true
		result.GaveUp = true
		r.logger().Warn("giving up on action family", "action", a,
			"signature", result.Signature, "count", result.Count)
	}

	if r.Failures != nil {
		err := r.Failures.AppendFailure(memory.Failure{
			At:        r.now(),
			Family:    string(a),
			Category:  result.Category,
			Severity:  string(result.Severity),
			Signature: result.Signature,
			Count:     result.Count,
			Excerpt:   Truncate(res.Output, 600),
			Fix:       result.Fix,
		})
		if err != nil {
			r.logger().Warn("could not record failure", "error", err)
		}
	}
}

func totalFailures(rec *state.SessionState) int {
	n := 0
	for _, c := range rec.Automation.FailuresByFamily {
		n += c
	}
	return n
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return "\n" + err.Error()
}

// Truncate keeps at most max bytes of the tail of s, where build and test
// tools print their summary. The cut never splits a UTF-8 sequence.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := len(s) - max
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return "... (truncated)\n" + s[cut:]
}

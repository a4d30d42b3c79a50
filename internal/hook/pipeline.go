package hook

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/detect"
	"github.com/fakeyudi/hookpilot/internal/recovery"
	"github.com/fakeyudi/hookpilot/internal/report"
	"github.com/fakeyudi/hookpilot/internal/runner"
	"github.com/fakeyudi/hookpilot/internal/state"
	"github.com/fakeyudi/hookpilot/internal/trigger"
)

// Processor handles one hook invocation for one project.
type Processor struct {
	Root    string
	Config  config.Config
	Store   state.Store
	Runner  *runner.Runner
	Library recovery.Library
	// Stacks supplies commands the config leaves empty. Optional.
	Stacks *detect.Cache
	// Branch reads the current branch; failures leave the record unchanged.
	Branch func(root string) (string, error)
	// NewID mints session ids when the host sends none.
	NewID  func() string
	Logger *slog.Logger
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Processor) library() recovery.Library {
	if p.Library != nil {
		return p.Library
	}
	return recovery.DefaultLibrary()
}

func (p *Processor) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

// Process runs the load, track, decide, run, save cycle for in and returns
// the response for the host. It never fails: every problem is folded into
// the response or logged.
func (p *Processor) Process(ctx context.Context, in Input) Response {
	kind := trigger.ParseKind(in.HookEventName)
	if kind == trigger.KindUnknown {
		p.logger().Debug("ignoring unknown hook event", "event", in.HookEventName)
		return Continue()
	}

	cfg := p.config()
	rec := p.Store.Load()
	p.refreshBranch(rec)

	var msgs messages
	rec = p.session(kind, in, rec)
	ev := p.track(kind, in, rec, &msgs)

	plan := trigger.Decide(rec, cfg, ev)
	suppressed := trigger.Suppressed(rec, cfg, ev)
	var outcome runner.Outcome
	if len(plan) > 0 && p.Runner != nil {
		r := *p.Runner
		r.Config = cfg
		outcome = r.Run(ctx, plan, rec)
	}
	for _, res := range outcome.Results {
		msgs.add(describe(res))
	}

	resp := Continue()
	switch kind {
	case trigger.KindSessionStart:
		summary := report.Summary(report.Build(p.Root, rec, cfg, p.stack()))
		msgs.add(summary)
		resp.HookSpecificOutput = &HookSpecific{HookEventName: string(kind), AdditionalContext: summary}
	case trigger.KindPreCompact:
		msgs.add(report.CompactSummary(report.Build(p.Root, rec, cfg, nil)))
	case trigger.KindPreToolUse:
		if ev.IsGate() {
			resp.HookSpecificOutput = p.gateDecision(cfg, ev, outcome, suppressed)
		}
	}

	if err := p.Store.Save(rec); err != nil {
		p.logger().Error("state not saved", "path", p.Store.Path(), "error", err)
	}
	resp.SystemMessage = msgs.String()
	return resp
}

// config fills empty commands from the detected stack.
func (p *Processor) config() config.Config {
	return p.Stacks.FillCommands(p.Root, p.Config)
}

func (p *Processor) stack() *detect.Stack {
	if p.Stacks == nil {
		return nil
	}
	s := p.Stacks.Get(p.Root)
	return &s
}

func (p *Processor) refreshBranch(rec *state.SessionState) {
	if p.Branch == nil {
		return
	}
	b, err := p.Branch(p.Root)
	if err != nil {
		p.logger().Debug("branch not refreshed", "error", err)
		return
	}
	if b == "" {
		rec.Git.CurrentBranch = nil
		return
	}
	rec.Git.CurrentBranch = &b
}

// session applies session lifecycle transitions. A session id the record has
// never seen starts a new session even without a SessionStart event.
func (p *Processor) session(kind trigger.Kind, in Input, rec *state.SessionState) *state.SessionState {
	if kind == trigger.KindSessionStart {
		id := in.SessionID
		if id == "" {
			id = p.newID()
		}
		if in.Source == "clear" {
			return state.ResetForNewSession(rec, id)
		}
		if id == rec.Session.ID && in.Source != "startup" {
			// Resume or compact of the session we already track.
			return rec
		}
		return state.InitializeSession(rec, id)
	}

	switch {
	case in.SessionID == "" || in.SessionID == rec.Session.ID:
		return rec
	case rec.Session.ID == "":
		rec.Session.ID = in.SessionID
		return rec
	default:
		p.logger().Info("session changed without SessionStart", "from", rec.Session.ID, "to", in.SessionID)
		return state.InitializeSession(rec, in.SessionID)
	}
}

// track folds the event's file activity and tool failures into rec and
// returns the trigger engine's view of it.
func (p *Processor) track(kind trigger.Kind, in Input, rec *state.SessionState, msgs *messages) trigger.Event {
	ev := trigger.Event{Kind: kind, ToolName: in.ToolName}

	switch kind {
	case trigger.KindPreToolUse:
		if in.ToolName == "Bash" {
			ev.Gate = trigger.GateFor(in.ToolInput.Command)
		}

	case trigger.KindPostToolUse:
		if trigger.IsFileWritingTool(in.ToolName) {
			for _, path := range in.Paths() {
				rel := p.relative(path)
				if trigger.IsIgnoredPath(rel) {
					continue
				}
				if in.ToolName == "Write" && in.Created() {
					state.RecordCreation(rec, rel)
				} else {
					state.RecordModification(rec, rel)
				}
				ev.Paths = append(ev.Paths, rel)
			}
			ev.FileChange = len(ev.Paths) > 0
			break
		}
		if in.ToolName != "Bash" {
			break
		}
		if code, ok := in.ExitCode(); ok && code != 0 {
			msgs.add(p.recordToolFailure(in, rec))
			break
		}
		if trigger.IsCommit(in.ToolInput.Command) {
			ev.CommitBoundary = true
			rec.Git.CommitsSinceMerge++
		}

	case trigger.KindPostToolUseFailure:
		msgs.add(p.recordToolFailure(in, rec))
	}
	return ev
}

// relative maps path into the project root. Paths outside the root stay
// absolute.
func (p *Processor) relative(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Clean(path)
	}
	return filepath.ToSlash(rel)
}

// recordToolFailure classifies a failed tool call and counts its signature.
// Tool failures are not an action family, so they never trip a retry ceiling.
func (p *Processor) recordToolFailure(in Input, rec *state.SessionState) string {
	out := in.Output()
	if strings.TrimSpace(out) == "" {
		return ""
	}
	var m *recovery.Match
	sig := recovery.Signature(recovery.Unclassified, out)
	if p.Config.Features.Recovery {
		sig, m = p.library().SignatureOf(out)
	}
	critical := m != nil && m.Pattern.Severity == recovery.SeverityCritical
	count := rec.RecordError("tool/"+sig, critical)

	var msg string
	if m != nil {
		msg = fmt.Sprintf("hookpilot: %s (%s): %s", m.Pattern.Category, m.Pattern.Severity, m.Pattern.Fix)
	} else {
		msg = "hookpilot: unclassified failure\n" + runner.Truncate(out, runner.MaxOutput)
	}
	if count > 1 {
		msg += fmt.Sprintf(" [seen %d times]", count)
	}
	return msg
}

func (p *Processor) gateDecision(cfg config.Config, ev trigger.Event, outcome runner.Outcome, suppressed trigger.Plan) *HookSpecific {
	out := &HookSpecific{HookEventName: string(trigger.KindPreToolUse)}
	for _, a := range []trigger.Action{trigger.RunBuild, trigger.RunTests} {
		res, ok := outcome.Result(a)
		if !ok || res.Status != runner.StatusFailed || !cfg.Git.BlockCommitOnFailure {
			continue
		}
		out.PermissionDecision = DecisionDeny
		out.PermissionDecisionReason = fmt.Sprintf("%s failed before %s", actionNoun(a), ev.Gate)
		if res.Fix != "" {
			out.PermissionDecisionReason += ": " + res.Fix
		}
		return out
	}
	for _, a := range suppressed {
		if a == trigger.RunBuild || a == trigger.RunTests {
			out.PermissionDecision = DecisionAsk
			out.PermissionDecisionReason = fmt.Sprintf("%s keeps failing and was skipped; confirm the %s", actionNoun(a), ev.Gate)
			return out
		}
	}
	return nil
}

func actionNoun(a trigger.Action) string {
	switch a {
	case trigger.RunBuild:
		return "build"
	case trigger.RunTests:
		return "tests"
	case trigger.Checkpoint:
		return "checkpoint"
	case trigger.AutoMerge:
		return "merge"
	}
	return string(a)
}

// describe renders one action result as a system message line.
func describe(res runner.Result) string {
	name := actionNoun(res.Action)
	switch res.Status {
	case runner.StatusSucceeded:
		return fmt.Sprintf("hookpilot: %s succeeded", name)
	case runner.StatusSkipped:
		return fmt.Sprintf("hookpilot: %s skipped (%s)", name, res.Reason)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "hookpilot: %s failed", name)
	if res.Category != "" && res.Category != recovery.Unclassified {
		fmt.Fprintf(&b, " [%s", res.Category)
		if res.Severity != "" {
			fmt.Fprintf(&b, ", %s", res.Severity)
		}
		b.WriteString("]")
	}
	if res.Fix != "" {
		fmt.Fprintf(&b, ": %s", res.Fix)
	}
	if res.GaveUp {
		fmt.Fprintf(&b, "\nhookpilot: giving up on %s after %d identical failures", name, res.Count)
	}
	if res.Output != "" {
		b.WriteString("\n")
		b.WriteString(res.Output)
	}
	return b.String()
}

// Package report turns a session record into a renderable status snapshot.
package report

import (
	"sort"
	"time"

	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/detect"
	"github.com/fakeyudi/hookpilot/internal/state"
)

// Report is the complete, renderable view of one project's record.
type Report struct {
	Root       string         `json:"root"`
	Mode       config.Mode    `json:"mode"`
	Session    SessionInfo    `json:"session"`
	Files      Files          `json:"files"`
	Git        Git            `json:"git"`
	Errors     []ErrorEntry   `json:"errors"`
	Automation Automation     `json:"automation"`
	Stack      *detect.Stack  `json:"stack,omitempty"`
	Thresholds ThresholdState `json:"thresholds"`
}

// SessionInfo is the session header.
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Files lists the tracked paths.
type Files struct {
	ModifiedThisSession     []string `json:"modified_this_session"`
	CreatedThisSession      []string `json:"created_this_session"`
	ModifiedSinceCheckpoint []string `json:"modified_since_checkpoint"`
	ModifiedSinceBuild      []string `json:"modified_since_build"`
}

// Git is the git bookkeeping.
type Git struct {
	Branch            string     `json:"branch,omitempty"`
	LastCheckpointAt  *time.Time `json:"last_checkpoint_at,omitempty"`
	CommitsSinceMerge int        `json:"commits_since_merge"`
}

// ErrorEntry is one recurring failure signature.
type ErrorEntry struct {
	Signature string    `json:"signature"`
	Count     int       `json:"count"`
	LastSeen  time.Time `json:"last_seen"`
	Critical  bool      `json:"critical"`
	// Skipped is set when the signature's action family was given up on.
	Skipped bool `json:"skipped"`
}

// Automation is the run bookkeeping.
type Automation struct {
	LastTestRunAt       *time.Time     `json:"last_test_run_at,omitempty"`
	LastBuildRunAt      *time.Time     `json:"last_build_run_at,omitempty"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	FailuresByFamily    map[string]int `json:"failures_by_family"`
	SkippedFamilies     []string       `json:"skipped_families"`
}

// ThresholdState shows how close each window is to firing.
type ThresholdState struct {
	CheckpointFiles int `json:"checkpoint_files"`
	SinceCheckpoint int `json:"since_checkpoint"`
	BuildFiles      int `json:"build_files"`
	SinceBuild      int `json:"since_build"`
}

// Build snapshots rec. stack may be nil.
func Build(root string, rec *state.SessionState, cfg config.Config, stack *detect.Stack) *Report {
	rec = rec.Clone()
	rec.Normalize()

	r := &Report{
		Root:    root,
		Mode:    cfg.Mode,
		Session: SessionInfo{ID: rec.Session.ID, StartedAt: rec.Session.StartedAt},
		Files: Files{
			ModifiedThisSession:     rec.Files.ModifiedThisSession.Sorted(),
			CreatedThisSession:      rec.Files.CreatedThisSession.Sorted(),
			ModifiedSinceCheckpoint: rec.Files.ModifiedSinceCheckpoint.Sorted(),
			ModifiedSinceBuild:      rec.Files.ModifiedSinceBuild.Sorted(),
		},
		Git: Git{
			LastCheckpointAt:  rec.Git.LastCheckpointAt,
			CommitsSinceMerge: rec.Git.CommitsSinceMerge,
		},
		Automation: Automation{
			LastTestRunAt:       rec.Automation.LastTestRunAt,
			LastBuildRunAt:      rec.Automation.LastBuildRunAt,
			ConsecutiveFailures: rec.Automation.ConsecutiveFailures,
			FailuresByFamily:    rec.Automation.FailuresByFamily,
		},
		Stack: stack,
		Thresholds: ThresholdState{
			CheckpointFiles: cfg.Thresholds.CheckpointFiles,
			SinceCheckpoint: state.CountSinceCheckpoint(rec),
			BuildFiles:      cfg.Building.RunAfterFileThreshold,
			SinceBuild:      state.CountSinceBuild(rec),
		},
	}
	if rec.Git.CurrentBranch != nil {
		r.Git.Branch = *rec.Git.CurrentBranch
	}
	for fam, skipped := range rec.Automation.SkippedFamilies {
		if skipped {
			r.Automation.SkippedFamilies = append(r.Automation.SkippedFamilies, fam)
		}
	}
	sort.Strings(r.Automation.SkippedFamilies)

	for sig, n := range rec.Errors.CountsBySignature {
		_, critical := rec.Errors.UnresolvedCritical[sig]
		r.Errors = append(r.Errors, ErrorEntry{
			Signature: sig,
			Count:     n,
			LastSeen:  rec.Errors.LastSeenBySignature[sig],
			Critical:  critical,
			Skipped:   rec.IsSkipped(Family(sig)),
		})
	}
	sortErrors(r.Errors)
	return r
}

// sortErrors puts the most frequent first, then the most recent.
func sortErrors(es []ErrorEntry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Count != es[j].Count {
			return es[i].Count > es[j].Count
		}
		if !es[i].LastSeen.Equal(es[j].LastSeen) {
			return es[i].LastSeen.After(es[j].LastSeen)
		}
		return es[i].Signature < es[j].Signature
	})
}

// Family is the action family prefix of a signature, or "" for signatures
// recorded outside an action.
func Family(signature string) string {
	for i := 0; i < len(signature); i++ {
		switch signature[i] {
		case '/':
			return signature[:i]
		case ':':
			return ""
		}
	}
	return ""
}

// Recurring returns the entries seen more than once, at most n of them.
func (r *Report) Recurring(n int) []ErrorEntry {
	var out []ErrorEntry
	for _, e := range r.Errors {
		if e.Count > 1 && len(out) < n {
			out = append(out, e)
		}
	}
	return out
}

// Critical returns the unresolved critical entries.
func (r *Report) Critical() []ErrorEntry {
	var out []ErrorEntry
	for _, e := range r.Errors {
		if e.Critical {
			out = append(out, e)
		}
	}
	return out
}

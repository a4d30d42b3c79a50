// Package state holds the persisted session record shared by every hook
// invocation of a project, and the pure operations that mutate it.
package state

import (
	"encoding/json"
	"sort"
	"time"
)

// SchemaVersion is the only record version Load accepts.
const SchemaVersion = 1

// SessionState is the single record persisted between invocations.
type SessionState struct {
	Version    int             `json:"version"`
	Session    SessionInfo     `json:"session"`
	Files      FileActivity    `json:"files"`
	Git        GitState        `json:"git"`
	Errors     ErrorHistory    `json:"errors"`
	Automation AutomationState `json:"automation"`
}

// SessionInfo identifies the host session the record currently belongs to.
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// FileActivity is per-session scratch. ModifiedSinceCheckpoint and
// ModifiedSinceBuild are always subsets of ModifiedThisSession.
type FileActivity struct {
	ModifiedThisSession     PathSet `json:"modified_this_session"`
	CreatedThisSession      PathSet `json:"created_this_session"`
	ModifiedSinceCheckpoint PathSet `json:"modified_since_checkpoint"`
	ModifiedSinceBuild      PathSet `json:"modified_since_build"`
}

// GitState is project history that outlives a session.
type GitState struct {
	CurrentBranch     *string    `json:"current_branch"`
	LastCheckpointAt  *time.Time `json:"last_checkpoint_at"`
	CommitsSinceMerge int        `json:"commits_since_merge"`
}

// ErrorHistory counts classified failures per signature. Counts only grow
// until an explicit reset.
type ErrorHistory struct {
	CountsBySignature   map[string]int       `json:"counts_by_signature"`
	LastSeenBySignature map[string]time.Time `json:"last_seen_by_signature"`
	// UnresolvedCritical holds critical signatures seen since the last
	// successful build or test run.
	UnresolvedCritical map[string]time.Time `json:"unresolved_critical"`
}

// AutomationState is the retry and timing bookkeeping of the action families.
type AutomationState struct {
	LastTestRunAt       *time.Time      `json:"last_test_run_at"`
	LastBuildRunAt      *time.Time      `json:"last_build_run_at"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	FailuresByFamily    map[string]int  `json:"failures_by_family"`
	SkippedFamilies     map[string]bool `json:"skipped_families"`
}

// Default returns the record a project starts from.
func Default() *SessionState {
	s := &SessionState{
		Version: SchemaVersion,
		Session: SessionInfo{StartedAt: timeNow().UTC()},
	}
	s.Normalize()
	return s
}

// Normalize allocates any nil collection so callers can mutate freely, and
// repairs a record that breaks the window subset or non-negative count
// invariants.
func (s *SessionState) Normalize() {
	if s.Files.ModifiedThisSession == nil {
		s.Files.ModifiedThisSession = PathSet{}
	}
	if s.Files.CreatedThisSession == nil {
		s.Files.CreatedThisSession = PathSet{}
	}
	if s.Files.ModifiedSinceCheckpoint == nil {
		s.Files.ModifiedSinceCheckpoint = PathSet{}
	}
	if s.Files.ModifiedSinceBuild == nil {
		s.Files.ModifiedSinceBuild = PathSet{}
	}
	if s.Errors.CountsBySignature == nil {
		s.Errors.CountsBySignature = map[string]int{}
	}
	if s.Errors.LastSeenBySignature == nil {
		s.Errors.LastSeenBySignature = map[string]time.Time{}
	}
	if s.Errors.UnresolvedCritical == nil {
		s.Errors.UnresolvedCritical = map[string]time.Time{}
	}
	if s.Automation.FailuresByFamily == nil {
		s.Automation.FailuresByFamily = map[string]int{}
	}
	if s.Automation.SkippedFamilies == nil {
		s.Automation.SkippedFamilies = map[string]bool{}
	}

	for _, window := range []PathSet{s.Files.ModifiedSinceCheckpoint, s.Files.ModifiedSinceBuild, s.Files.CreatedThisSession} {
		for p := range window {
			s.Files.ModifiedThisSession.Add(p)
		}
	}
	clampCounts(s.Errors.CountsBySignature)
	clampCounts(s.Automation.FailuresByFamily)
	s.Git.CommitsSinceMerge = max(s.Git.CommitsSinceMerge, 0)
	s.Automation.ConsecutiveFailures = max(s.Automation.ConsecutiveFailures, 0)
}

func clampCounts(m map[string]int) {
	for k, v := range m {
		if v < 0 {
			m[k] = 0
		}
	}
}

// Clone returns a deep copy of s.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.Files = FileActivity{
		ModifiedThisSession:     s.Files.ModifiedThisSession.clone(),
		CreatedThisSession:      s.Files.CreatedThisSession.clone(),
		ModifiedSinceCheckpoint: s.Files.ModifiedSinceCheckpoint.clone(),
		ModifiedSinceBuild:      s.Files.ModifiedSinceBuild.clone(),
	}
	c.Git = s.Git.clone()
	c.Errors = s.Errors.clone()
	c.Automation = s.Automation.clone()
	c.Normalize()
	return &c
}

func (g GitState) clone() GitState {
	c := g
	if g.CurrentBranch != nil {
		b := *g.CurrentBranch
		c.CurrentBranch = &b
	}
	c.LastCheckpointAt = cloneTime(g.LastCheckpointAt)
	return c
}

func (e ErrorHistory) clone() ErrorHistory {
	return ErrorHistory{
		CountsBySignature:   cloneMap(e.CountsBySignature),
		LastSeenBySignature: cloneMap(e.LastSeenBySignature),
		UnresolvedCritical:  cloneMap(e.UnresolvedCritical),
	}
}

func (a AutomationState) clone() AutomationState {
	c := a
	c.LastTestRunAt = cloneTime(a.LastTestRunAt)
	c.LastBuildRunAt = cloneTime(a.LastBuildRunAt)
	c.FailuresByFamily = cloneMap(a.FailuresByFamily)
	c.SkippedFamilies = cloneMap(a.SkippedFamilies)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RecordError counts one more occurrence of signature.
func (s *SessionState) RecordError(signature string, critical bool) int {
	s.Normalize()
	now := timeNow().UTC()
	s.Errors.CountsBySignature[signature]++
	s.Errors.LastSeenBySignature[signature] = now
	if critical {
		s.Errors.UnresolvedCritical[signature] = now
	}
	return s.Errors.CountsBySignature[signature]
}

// HasUnresolvedCritical reports whether a critical failure is still open.
func (s *SessionState) HasUnresolvedCritical() bool {
	return len(s.Errors.UnresolvedCritical) > 0
}

// IsSkipped reports whether family was given up on after too many failures.
func (s *SessionState) IsSkipped(family string) bool {
	return s.Automation.SkippedFamilies[family]
}

// PathSet is a set of file paths stored as a sorted JSON array.
type PathSet map[string]struct{}

// Add inserts p and reports whether it was new.
func (ps PathSet) Add(p string) bool {
	if _, ok := ps[p]; ok {
		return false
	}
	ps[p] = struct{}{}
	return true
}

func (ps PathSet) clone() PathSet {
	return cloneMap(ps)
}

// Has reports whether p is in the set.
func (ps PathSet) Has(p string) bool {
	_, ok := ps[p]
	return ok
}

// Sorted returns the members in lexical order.
func (ps PathSet) Sorted() []string {
	out := make([]string, 0, len(ps))
	for p := range ps {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SubsetOf reports whether every member of ps is in other.
func (ps PathSet) SubsetOf(other PathSet) bool {
	for p := range ps {
		if !other.Has(p) {
			return false
		}
	}
	return true
}

func (ps PathSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ps.Sorted())
}

func (ps *PathSet) UnmarshalJSON(data []byte) error {
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return err
	}
	set := make(PathSet, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	*ps = set
	return nil
}

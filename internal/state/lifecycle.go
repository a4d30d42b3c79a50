package state

// InitializeSession starts a new host session on top of s. Session scratch is
// dropped; the checkpoint window, git and error history carry over. Paths
// still pending a checkpoint are kept in the session set so the windows stay
// subsets of it. Families given up on in the previous session get another
// chance.
func InitializeSession(s *SessionState, newID string) *SessionState {
	next := s.Clone()
	next.Session = SessionInfo{ID: newID, StartedAt: timeNow().UTC()}

	next.Files.CreatedThisSession = PathSet{}
	next.Files.ModifiedThisSession = PathSet{}
	for p := range next.Files.ModifiedSinceCheckpoint {
		next.Files.ModifiedThisSession.Add(p)
	}
	for p := range next.Files.ModifiedSinceBuild {
		if !next.Files.ModifiedThisSession.Has(p) {
			delete(next.Files.ModifiedSinceBuild, p)
		}
	}

	next.Automation.SkippedFamilies = map[string]bool{}
	next.Automation.FailuresByFamily = map[string]int{}
	next.Automation.ConsecutiveFailures = 0
	return next
}

// ResetForNewSession returns a default record that keeps only the git and
// error history of s. Repository state and failure knowledge belong to the
// project, not to a conversation.
func ResetForNewSession(s *SessionState, newID string) *SessionState {
	prev := s.Clone()
	next := Default()
	next.Session.ID = newID
	next.Git = prev.Git
	next.Errors = prev.Errors
	next.Normalize()
	return next
}

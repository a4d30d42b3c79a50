package state

// RecordModification adds path to the session, checkpoint and build windows.
// Recording a path twice has no further effect.
func RecordModification(s *SessionState, path string) {
	s.Normalize()
	s.Files.ModifiedThisSession.Add(path)
	s.Files.ModifiedSinceCheckpoint.Add(path)
	s.Files.ModifiedSinceBuild.Add(path)
}

// RecordCreation marks path as created this session, then records it as a
// modification.
func RecordCreation(s *SessionState, path string) {
	s.Normalize()
	s.Files.CreatedThisSession.Add(path)
	RecordModification(s, path)
}

// ClearCheckpointWindow empties the since-checkpoint window only.
func ClearCheckpointWindow(s *SessionState) {
	s.Files.ModifiedSinceCheckpoint = PathSet{}
}

// ClearBuildWindow empties the since-build window only.
func ClearBuildWindow(s *SessionState) {
	s.Files.ModifiedSinceBuild = PathSet{}
}

// CountSinceCheckpoint is the number of distinct paths changed since the
// last checkpoint.
func CountSinceCheckpoint(s *SessionState) int {
	return len(s.Files.ModifiedSinceCheckpoint)
}

// CountSinceBuild is the number of distinct paths changed since the last
// successful build.
func CountSinceBuild(s *SessionState) int {
	return len(s.Files.ModifiedSinceBuild)
}

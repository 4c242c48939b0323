package internal

// ResumeResolver locates the most recent resumable session for a project
// directory. It holds no persistent state of its own; it only reads and
// ranks what the store already has.
type ResumeResolver struct {
	store *SessionStore
}

// NewResumeResolver creates a resolver over a store.
func NewResumeResolver(store *SessionStore) *ResumeResolver {
	return &ResumeResolver{store: store}
}

// Resolve returns the most recently updated, structurally valid session for
// the project path, or nil when no resumable session exists. Candidates that
// fail validation were already skipped (with warnings) by the store's
// listing, so resumption degrades gracefully to "start fresh".
//
// Sessions sharing the newest UpdatedAt are tie-broken by transcript entry
// count: more progress implies more recent.
func (r *ResumeResolver) Resolve(projectPath string) (*Session, error) {
	sessions, err := r.store.ListForProject(projectPath)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	best := sessions[0]
	bestCount := int64(-1)
	for _, candidate := range sessions[1:] {
		if !candidate.UpdatedAt.Equal(best.UpdatedAt) {
			break
		}
		if bestCount < 0 {
			bestCount = CountTranscriptEntries(best.TranscriptPath)
		}
		if count := CountTranscriptEntries(candidate.TranscriptPath); count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best, nil
}

// ResolveLast follows the store's auto-resume pointer to the session the
// previous run used. A dangling or corrupt pointer target is downgraded to a
// warning and nil, never a failure.
func (r *ResumeResolver) ResolveLast() (*Session, error) {
	lastID := r.store.ReadLastSessionID()
	if lastID == "" {
		return nil, nil
	}
	sess, err := r.store.Load(lastID)
	if err == nil {
		return sess, nil
	}
	if err == ErrNotFound || IsCorrupt(err) {
		LogWarn("Last session %s is not resumable: %v", lastID, err)
		return nil, nil
	}
	return nil, err
}

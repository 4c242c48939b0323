package internal

import (
	"context"
	"encoding/json"
	"fmt"
)

// RunState tracks where a session is in its lifecycle.
type RunState int

const (
	StateUnopened RunState = iota
	StateResolving
	StateFresh
	StateResuming
	StateActive
	StateSaved
	StateAbandoned
)

func (s RunState) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateResolving:
		return "resolving"
	case StateFresh:
		return "fresh"
	case StateResuming:
		return "resuming"
	case StateActive:
		return "active"
	case StateSaved:
		return "saved"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ResumePolicy selects how Open picks a session.
type ResumePolicy int

const (
	// ResumeAuto continues the last session when one exists, otherwise the
	// newest session for the project, otherwise creates a fresh one.
	ResumeAuto ResumePolicy = iota
	// ResumeRequired resumes or fails with ErrNotFound; creation disallowed.
	ResumeRequired
	// ResumeNever always creates a fresh session.
	ResumeNever
	// ResumeByID resumes the session named in OpenOptions.SessionID.
	ResumeByID
)

// Responder produces the conversational content being logged. Model
// invocation lives behind this seam and is otherwise out of scope here.
type Responder interface {
	// Respond takes the session's current snapshot and the user prompt and
	// returns the reply plus the replacement snapshot.
	Respond(ctx context.Context, snapshot []byte, prompt string) (reply string, next []byte, err error)
}

// OpenOptions configure a ModeAdapter open.
type OpenOptions struct {
	StoreRoot      string
	ProjectPath    string
	Policy         ResumePolicy
	SessionID      string // required with ResumeByID
	TranscriptPath string // overrides the session's default destination
	Settings       *Settings
}

// ActiveSession is a session opened for mutation: lock held, transcript
// open, record loaded. Both runner modes drive their run through it.
type ActiveSession struct {
	Session    *Session
	store      *SessionStore
	transcript *Transcript
	lock       *Lock
	state      RunState
	resumed    bool
	closed     bool
}

// Open resolves or creates a session, takes its lock, and opens its
// transcript. On contention it fails fast with ErrBusy; it never waits.
func Open(opts OpenOptions) (*ActiveSession, error) {
	settings := opts.Settings
	if settings == nil {
		settings = LoadSettings(opts.StoreRoot)
	}

	store, err := OpenStore(opts.StoreRoot)
	if err != nil {
		return nil, err
	}

	active := &ActiveSession{store: store, state: StateResolving}
	sess, err := active.resolveSession(opts, settings)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	lock, err := AcquireLock(store.SessionDir(sess.ID), settings.LockStaleAfter)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if lock.Reclaimed() {
		// The previous holder died without releasing; its run ended
		// abandoned and we are reclaiming.
		active.state = StateAbandoned
		LogWarn("Reclaimed stale lock for session %s; previous run was abandoned", sess.ID)
	}

	transcriptPath := sess.TranscriptPath
	if opts.TranscriptPath != "" {
		transcriptPath = opts.TranscriptPath
		sess.TranscriptPath = transcriptPath
	}
	transcript, err := OpenTranscript(sess.ID, sess.ProjectPath, transcriptPath, settings.DurableAppends)
	if err != nil {
		_ = lock.Release()
		_ = store.Close()
		return nil, err
	}

	if err := store.RecordLastSessionID(sess.ID); err != nil {
		LogWarn("Failed to record last session id: %v", err)
	}

	active.Session = sess
	active.transcript = transcript
	active.lock = lock
	active.state = StateActive
	return active, nil
}

func (a *ActiveSession) resolveSession(opts OpenOptions, settings *Settings) (*Session, error) {
	resolver := NewResumeResolver(a.store)

	// At most one live session per project: a fresh session may not be
	// created alongside one whose lock is still held.
	createFresh := func() (*Session, error) {
		if id, live := a.store.liveSessionFor(opts.ProjectPath, settings.LockStaleAfter); live {
			LogDebug("Session %s is live for this project, refusing to create another", id)
			return nil, ErrBusy
		}
		sess, err := a.store.Create(opts.ProjectPath)
		if err != nil {
			return nil, err
		}
		a.state = StateFresh
		return sess, nil
	}

	switch opts.Policy {
	case ResumeByID:
		sess, err := a.store.Load(opts.SessionID)
		if err != nil {
			return nil, err
		}
		a.resumed = true
		a.state = StateResuming
		return sess, nil

	case ResumeRequired:
		sess, err := resolver.Resolve(opts.ProjectPath)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, ErrNotFound
		}
		a.resumed = true
		a.state = StateResuming
		return sess, nil

	case ResumeNever:
		return createFresh()

	default: // ResumeAuto
		sess, err := resolver.ResolveLast()
		if err != nil {
			return nil, err
		}
		if sess != nil {
			canon, err := CanonicalProjectPath(opts.ProjectPath)
			if err != nil {
				return nil, err
			}
			if sess.ProjectPath != canon {
				sess = nil
			}
		}
		if sess == nil {
			if sess, err = resolver.Resolve(opts.ProjectPath); err != nil {
				return nil, err
			}
		}
		if sess != nil {
			a.resumed = true
			a.state = StateResuming
			return sess, nil
		}
		return createFresh()
	}
}

// Resumed reports whether the session was resumed rather than created.
func (a *ActiveSession) Resumed() bool {
	return a.resumed
}

// State returns the adapter's lifecycle state.
func (a *ActiveSession) State() RunState {
	return a.state
}

// Store exposes the underlying store (read paths for commands).
func (a *ActiveSession) Store() *SessionStore {
	return a.store
}

// TranscriptEntryCount returns the number of entries durably written.
func (a *ActiveSession) TranscriptEntryCount() int64 {
	return a.transcript.EntryCount()
}

// AppendInput logs a user prompt.
func (a *ActiveSession) AppendInput(payload interface{}) (*TranscriptEntry, error) {
	return a.append(EntryInput, payload)
}

// AppendOutput logs a responder reply.
func (a *ActiveSession) AppendOutput(payload interface{}) (*TranscriptEntry, error) {
	return a.append(EntryOutput, payload)
}

// AppendSystem logs a system event.
func (a *ActiveSession) AppendSystem(payload interface{}) (*TranscriptEntry, error) {
	return a.append(EntrySystem, payload)
}

func (a *ActiveSession) append(kind EntryKind, payload interface{}) (*TranscriptEntry, error) {
	if a.closed {
		return nil, fmt.Errorf("session %s is closed", a.Session.ID)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return a.transcript.Append(kind, raw)
}

// SaveSnapshot replaces the session snapshot wholesale, persists the record,
// and refreshes the lock heartbeat. ErrBusy from the refresh means the lock
// aged out and was reclaimed; the caller must stop mutating.
func (a *ActiveSession) SaveSnapshot(snapshot []byte) error {
	if a.closed {
		return fmt.Errorf("session %s is closed", a.Session.ID)
	}
	if err := a.store.Save(a.Session, snapshot); err != nil {
		return err
	}
	a.store.SetEntryCount(a.Session, a.transcript.EntryCount())
	if err := a.lock.Refresh(); err != nil {
		return err
	}
	return nil
}

// RunTurn performs one unit of work: append the input, obtain the reply,
// append the output, save the snapshot. A crash mid-turn loses at most the
// in-flight turn.
func (a *ActiveSession) RunTurn(ctx context.Context, responder Responder, prompt string) (string, error) {
	if _, err := a.AppendInput(prompt); err != nil {
		return "", err
	}
	reply, next, err := responder.Respond(ctx, a.Session.Snapshot, prompt)
	if err != nil {
		if _, logErr := a.AppendSystem(fmt.Sprintf("turn failed: %v", err)); logErr != nil {
			LogWarn("Failed to log turn failure: %v", logErr)
		}
		return "", err
	}
	if _, err := a.AppendOutput(reply); err != nil {
		return "", err
	}
	if err := a.SaveSnapshot(next); err != nil {
		return "", err
	}
	return reply, nil
}

// Close saves the final record state, releases the lock, and closes the
// transcript. It is idempotent.
func (a *ActiveSession) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var firstErr error
	if err := a.store.Save(a.Session, a.Session.Snapshot); err != nil {
		firstErr = err
	}
	a.store.SetEntryCount(a.Session, a.transcript.EntryCount())
	if err := a.transcript.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.lock.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr == nil {
		a.state = StateSaved
	}
	return firstErr
}

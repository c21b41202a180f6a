package session

import "time"

// Session is the mutable per-conversation state: ordered turn history,
// visibility mode, selected persona, and activity bookkeeping.
//
// Not thread-safe on its own. The Store guarantees exclusive access; callers
// must only touch a Session inside [Store.WithSession].
type Session struct {
	history      []Turn
	visibility   Visibility
	persona      string // empty means the default persona
	lastActivity time.Time
	nextSeq      int
}

// newSession creates an empty session with the explicit default visibility.
func newSession(now time.Time) *Session {
	return &Session{
		visibility:   VisibilityPublic,
		lastActivity: now,
	}
}

// AppendTurn appends a turn with the next monotonic sequence number and
// updates the activity timestamp. History is append-only; the only other
// mutation is a full clear.
func (s *Session) AppendTurn(role Role, text string) Turn {
	now := time.Now()
	t := Turn{
		Role:      role,
		Text:      text,
		Sequence:  s.nextSeq,
		CreatedAt: now,
	}
	s.nextSeq++
	s.history = append(s.history, t)
	s.lastActivity = now
	return t
}

// ClearHistory removes all turns and resets the sequence counter.
// Visibility and persona are deliberately not reset.
func (s *Session) ClearHistory() {
	s.history = nil
	s.nextSeq = 0
	s.lastActivity = time.Now()
}

// SetVisibility sets the visibility mode. Setting the current mode is a no-op
// beyond the activity timestamp update.
func (s *Session) SetVisibility(v Visibility) {
	s.visibility = v
	s.lastActivity = time.Now()
}

// Visibility returns the current visibility mode.
func (s *Session) Visibility() Visibility {
	return s.visibility
}

// SetPersona records the persona selected for this conversation.
func (s *Session) SetPersona(name string) {
	s.persona = name
	s.lastActivity = time.Now()
}

// Persona returns the selected persona name, or "" when none was chosen.
func (s *Session) Persona() string {
	return s.persona
}

// History returns a copy of the turn history in conversational order.
// The copy keeps callers from holding a reference into session state
// beyond the guarded access.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of turns in the history.
func (s *Session) Len() int {
	return len(s.history)
}

// LastActivity returns the time of the most recent command against this session.
func (s *Session) LastActivity() time.Time {
	return s.lastActivity
}

// Touch updates the activity timestamp without any other mutation.
func (s *Session) Touch() {
	s.lastActivity = time.Now()
}

package session

import (
	"fmt"
	"sync"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/script"
)

// Turn roles in a session's conversation history.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Turn is one entry in a session's history. User turns carry only the
// transcribed utterance; agent turns record the decision that was spoken
// (the personalized line plus the process the model advanced to).
type Turn struct {
	Role        string
	Text        string
	NextProcess string
}

// Session is the per-call conversation state, keyed by the provider's
// CallSid. History is append-only for the life of the call and
// CurrentProcess is never empty.
type Session struct {
	CallSid        string
	History        []Turn
	CurrentProcess string
}

// ErrExists is returned by Create when a live session already holds the
// CallSid. A duplicate setup for a live call is an anomaly; the existing
// session is kept rather than silently replaced.
var ErrExists = fmt.Errorf("session already exists")

// Registry owns every live Session. Events for one call arrive on a single
// connection and are processed sequentially, so per-session locking is not
// needed; the map itself is shared across all calls and guarded for
// concurrent access to different keys.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create inserts a fresh session for callSid starting at the Opening
// process. It returns ErrExists without touching the live session if the
// CallSid is already registered.
func (r *Registry) Create(callSid string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[callSid]; ok {
		return nil, fmt.Errorf("create %s: %w", callSid, ErrExists)
	}
	s := &Session{CallSid: callSid, CurrentProcess: script.ProcessOpening}
	r.sessions[callSid] = s
	return s, nil
}

// Get returns the session for callSid, or false when no live call holds
// it. Callers treat false as a protocol violation: log and drop the event.
func (r *Registry) Get(callSid string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[callSid]
	return s, ok
}

// Remove deletes the session for callSid. Removing an unknown CallSid is a
// no-op; teardown must be idempotent.
func (r *Registry) Remove(callSid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callSid)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

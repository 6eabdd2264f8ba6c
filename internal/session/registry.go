package session

import "sync"

// Registry enforces at most one non-terminal session per scope.
// It is the only shared map of sessions; all inserts go through an atomic
// check-and-insert under the registry lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Create allocates a new session for the scope in StateCreated.
// Returns ErrBusy if the scope already holds a non-terminal session.
// A leftover terminal session is replaced.
func (r *Registry) Create(scope, account string, kind Kind, wager int64, payload Payload) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[scope]; ok && !existing.Terminal() {
		return nil, ErrBusy
	}

	s := New(scope, account, kind, wager, payload)
	r.sessions[scope] = s
	return s, nil
}

// Get returns the session bound to the scope, or nil.
func (r *Registry) Get(scope string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[scope]
}

// Remove deletes the scope's session. Removing an absent scope is a no-op.
func (r *Registry) Remove(scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, scope)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Scopes returns the scopes with a registered session.
func (r *Registry) Scopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scopes := make([]string, 0, len(r.sessions))
	for scope := range r.sessions {
		scopes = append(scopes, scope)
	}
	return scopes
}

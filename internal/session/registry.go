package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nadasuara/server/domain/repositories"
)

// Registry is the process-wide table of live sessions keyed by
// connection identity. Only the map itself is guarded; each session's
// internal state is touched solely by the connection handler that owns
// it, so no cross-session locking exists.
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

// Create builds a session for the given connection identity and registers
// it. A duplicate identity is an error.
func (r *Registry) Create(id, deviceID string, cfg Config, recognizer repositories.Recognizer, emitter Emitter, logger *zap.Logger) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already exists", id)
	}
	sess := New(id, deviceID, cfg, recognizer, emitter, logger)
	r.sessions[id] = sess
	return sess, nil
}

// Lookup returns the session for the identity, if registered.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove unregisters the identity. The session itself is not closed;
// the owning connection handler does that.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ForEach calls fn for every registered session. The registry lock is
// held only while copying the slice, not during the callbacks.
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	r.mu.RUnlock()

	for _, sess := range all {
		fn(sess)
	}
}

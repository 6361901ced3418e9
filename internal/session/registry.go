package session

import "sync"

// Registry tracks sessions that have reached Running, keyed by device_id.
// A session that is not approved must never appear here.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*ClientSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*ClientSession)}
}

// Add registers a running session.
func (r *Registry) Add(s *ClientSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.DeviceID] = s
}

// Remove drops a session from the registry.
func (r *Registry) Remove(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, deviceID)
}

// Get returns the running session for deviceID, if any.
func (r *Registry) Get(deviceID string) (*ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[deviceID]
	return s, ok
}

// Count returns the number of currently running sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of every running session.
func (r *Registry) All() []*ClientSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ClientSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// TerminateAll terminates every running session, used on server shutdown.
func (r *Registry) TerminateAll() {
	for _, s := range r.All() {
		s.Terminate()
	}
}

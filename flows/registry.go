// Package flows implements ephemeral guided multi-step sessions (e.g.
// product creation), keyed per (user, chat). The registry replaces the
// usual unguarded global session map with atomic get-or-create and
// read-modify-write semantics plus TTL eviction, so two tabs for the same
// user cannot corrupt each other's step state.
package flows

import (
	"sync"
	"time"
)

// Mode names an active guided flow.
type Mode string

const (
	// ModeNone marks an idle session.
	ModeNone Mode = ""

	// ModeCreatingProduct is the guided product-creation flow.
	ModeCreatingProduct Mode = "creating_product"
)

// MaxSteps is the per-flow step ceiling; exceeding it expires the session.
const MaxSteps = 12

// Session is one ephemeral flow state.
type Session struct {
	Mode  Mode
	Step  string
	Steps int
	Data  map[string]any

	touched time.Time
}

func newSession() *Session {
	return &Session{Data: make(map[string]any), touched: time.Now()}
}

// Registry holds flow sessions keyed by (user, chat).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewRegistry creates a registry whose sessions expire after ttl of
// inactivity (default 15 minutes when ttl <= 0).
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Registry{sessions: make(map[string]*Session), ttl: ttl}
}

func sessionKey(userID, chatID string) string {
	return userID + ":" + chatID
}

// Update runs fn against the session for (user, chat) under the registry
// lock, creating the session when absent. When fn returns false the session
// is removed; otherwise the mutated state is kept. This is the atomic
// read-modify-write the flow driver builds on.
func (r *Registry) Update(userID, chatID string, fn func(s *Session) (keep bool)) {
	key := sessionKey(userID, chatID)
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		s = newSession()
		r.sessions[key] = s
	}
	s.touched = time.Now()
	if !fn(s) {
		delete(r.sessions, key)
	}
}

// Peek returns a copy of the session for (user, chat), or nil.
func (r *Registry) Peek(userID, chatID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey(userID, chatID)]
	if !ok {
		return nil
	}
	cp := *s
	cp.Data = make(map[string]any, len(s.Data))
	for k, v := range s.Data {
		cp.Data[k] = v
	}
	return &cp
}

// Drop removes the session for (user, chat).
func (r *Registry) Drop(userID, chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey(userID, chatID))
}

// Sweep evicts sessions idle past the TTL and returns how many were removed.
// Intended to run periodically from a scheduler.
func (r *Registry) Sweep() int {
	cutoff := time.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, s := range r.sessions {
		if s.touched.Before(cutoff) {
			delete(r.sessions, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

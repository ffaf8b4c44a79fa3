// Package server coordinates session registration through the Registry,
// the single source of truth for who is online.
package server

import (
	"errors"
	"sync"
)

// ErrUsernameTaken is returned by TryRegister when another live session
// already owns the requested username.
var ErrUsernameTaken = errors.New("username is already taken")

// ErrSessionNotFound is returned by operations that target a username
// with no live session.
var ErrSessionNotFound = errors.New("session not found")

// Registry is the mutex-guarded mapping from username to session. A
// username key exists iff there is a live session for it; reservation is
// atomic with respect to concurrent registration attempts. The lock is
// held only for the duration of the map operation, never across socket
// I/O — callers obtain owned snapshots and perform delivery outside the
// lock.
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

// TryRegister inserts the session iff its username is free. The
// check-and-insert is atomic: of any set of concurrent attempts for one
// username, exactly one succeeds and the rest observe ErrUsernameTaken.
func (r *Registry) TryRegister(session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.Username]; exists {
		return ErrUsernameTaken
	}
	r.sessions[session.Username] = session
	return nil
}

// Unregister removes the username if present. Idempotent; it reports
// whether an entry was actually removed so teardown can run its
// departure broadcast exactly once.
func (r *Registry) Unregister(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[username]; !exists {
		return false
	}
	delete(r.sessions, username)
	return true
}

// Get returns the live session for username, if any.
func (r *Registry) Get(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[username]
	return session, exists
}

// SetStatus updates the presence state of a registered user.
func (r *Registry) SetStatus(username string, status Status) error {
	r.mu.RLock()
	session, exists := r.sessions[username]
	r.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}
	session.setStatus(status)
	return nil
}

// Snapshot returns a point-in-time copy of all current sessions. The
// returned slice is owned by the caller; iteration order is not
// guaranteed.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// Presence is one username/status pair from the registry.
type Presence struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
}

// List returns the current username/status pairs. Order follows map
// iteration and is not a contracted guarantee.
func (r *Registry) List() []Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Presence, 0, len(r.sessions))
	for username, session := range r.sessions {
		list = append(list, Presence{Username: username, Status: session.Status()})
	}
	return list
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session identifies one connected command client.
type Session struct {
	ID          uuid.UUID
	RemoteAddr  string
	ConnectedAt time.Time
}

// SessionRegistry tracks command-channel connections and the single
// session currently authorized to drive the rover. The first connected
// session holds command authority; when it disconnects, the oldest
// remaining session is promoted.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	holder   uuid.UUID
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Register adds a session for the given remote address and returns it.
// The first session to register becomes the command holder.
func (r *SessionRegistry) Register(remoteAddr string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Session{
		ID:          uuid.New(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
	r.sessions[s.ID] = s
	if r.holder == uuid.Nil {
		r.holder = s.ID
	}
	return s
}

// Unregister removes a session. If it held command authority, the oldest
// remaining session is promoted.
func (r *SessionRegistry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	if r.holder != id {
		return
	}
	r.holder = uuid.Nil
	var oldest *Session
	for _, s := range r.sessions {
		if oldest == nil || s.ConnectedAt.Before(oldest.ConnectedAt) {
			oldest = s
		}
	}
	if oldest != nil {
		r.holder = oldest.ID
	}
}

// IsHolder reports whether the session currently holds command authority.
func (r *SessionRegistry) IsHolder(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holder == id
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

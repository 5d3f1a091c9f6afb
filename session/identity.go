// Package session holds the in-memory state machine of the signaling
// layer: the identity registry, the room directory, the broadcast router,
// and the coordinator serializing every transition across them.
package session

import (
	"sync"

	"roomcast/domain"
)

// IdentityRegistry maps live connections to their claimed identity.
// The coordinator is the only writer; the mutex exists for concurrent
// readers (monitoring, debug endpoint).
type IdentityRegistry struct {
	mu    sync.RWMutex
	users map[domain.ConnID]domain.User
}

func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{users: make(map[domain.ConnID]domain.User)}
}

// SetIdentity inserts or overwrites the record for conn. A re-set keeps
// the current room, so renaming inside a room cannot desync membership.
func (r *IdentityRegistry) SetIdentity(conn domain.ConnID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[conn]
	u.Name = name
	r.users[conn] = u
}

// Get returns the record for conn. Absence is an expected state, not a
// fault: events may arrive before any identity was claimed.
func (r *IdentityRegistry) Get(conn domain.ConnID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[conn]
	return u, ok
}

// SetRoom records conn's current room, empty meaning none. No-op when
// the identity is absent.
func (r *IdentityRegistry) SetRoom(conn domain.ConnID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[conn]
	if !ok {
		return
	}
	u.Room = room
	r.users[conn] = u
}

// Remove deletes the record and returns the prior value, which disconnect
// cleanup needs to notify the old room.
func (r *IdentityRegistry) Remove(conn domain.ConnID) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[conn]
	if ok {
		delete(r.users, conn)
	}
	return u, ok
}

func (r *IdentityRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

package session

import (
	"sync"

	"github.com/samber/lo"

	"roomcast/domain"
	"roomcast/errors"
)

// RoomDirectory maps room names to their membership sets. A room exists
// from creation onward: empty rooms are never deleted, their name and
// password stay reserved. The empty-room count is surfaced in stats so
// the accumulation is at least visible.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[string]*domain.Room)}
}

// Create inserts a new room with creator as its only member.
// Fails with ErrRoomExists when the name is already taken; the existing
// room is left untouched.
func (d *RoomDirectory) Create(name, passwordHash string, creator domain.ConnID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[name]; ok {
		return errors.ErrRoomExists
	}
	d.rooms[name] = domain.NewRoom(name, passwordHash, creator)
	return nil
}

// Get returns a snapshot of the room, members copied.
func (d *RoomDirectory) Get(name string) (domain.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[name]
	if !ok {
		return domain.Room{}, false
	}
	snapshot := *room
	snapshot.Members = make(map[domain.ConnID]struct{}, len(room.Members))
	for conn := range room.Members {
		snapshot.Members[conn] = struct{}{}
	}
	return snapshot, true
}

// AddMember inserts conn into the room's member set. Re-adding an
// existing member is a no-op. Fails with ErrRoomMissing when the room
// is absent.
func (d *RoomDirectory) AddMember(name string, conn domain.ConnID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[name]
	if !ok {
		return errors.ErrRoomMissing
	}
	room.Members[conn] = struct{}{}
	return nil
}

// RemoveMember drops conn from the room's member set. A no-op when the
// room or the membership is absent; the room record stays either way.
func (d *RoomDirectory) RemoveMember(name string, conn domain.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok := d.rooms[name]; ok {
		delete(room.Members, conn)
	}
}

// Members returns the current member set of the room, nil when absent.
func (d *RoomDirectory) Members(name string) []domain.ConnID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[name]
	if !ok {
		return nil
	}
	return lo.Keys(room.Members)
}

// Names returns every room name, empty rooms included.
func (d *RoomDirectory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Keys(d.rooms)
}

func (d *RoomDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *RoomDirectory) EmptyCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.CountBy(lo.Values(d.rooms), func(room *domain.Room) bool {
		return len(room.Members) == 0
	})
}

// Package registry owns the in-memory room state: which rooms exist, who is
// in them, and the advisory last-known bindings used for reconnection. It is
// the single source of truth for membership; the transport-side broadcast
// groups are derived from it, never the other way around.
package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrRoomNotFound is returned when an operation targets a room id that is not
// registered. Callers decide the fallback; the registry never auto-creates.
var ErrRoomNotFound = errors.New("room not found")

// Membership associates one connection with one room under one username.
type Membership struct {
	ConnID   string
	RoomID   string
	Username string
}

// Room is a named group of members. Members keeps join order.
type Room struct {
	ID      string
	Name    string
	Members []Membership
}

// RoomInfo is the read-only shape exposed over the admin surface.
type RoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// Registry maps room ids to room state. All methods are safe for concurrent
// use; a room with zero members is deleted inside the same critical section
// as the removal that emptied it, so an empty room is never observable.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreateRoom registers an empty room under a fresh random id and returns the
// id. Room ids are generated server-side only.
func (r *Registry) CreateRoom(name string) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.rooms[id] = &Room{ID: id, Name: name}
	r.mu.Unlock()
	return id
}

// Get returns a copy of the room so callers can read members without holding
// the registry lock.
func (r *Registry) Get(roomID string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	cp := Room{ID: room.ID, Name: room.Name, Members: make([]Membership, len(room.Members))}
	copy(cp.Members, room.Members)
	return cp, true
}

// AddMember appends a membership to an existing room. If the username is
// already a member the existing record is refreshed with the new connection
// id instead of appending a duplicate; usernames are unique within a room.
// The superseded connection id is returned so the caller can retire its
// broadcast subscription; it is empty when the member is new.
func (r *Registry) AddMember(roomID, connID, username string) (prevConn string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return "", ErrRoomNotFound
	}
	for i := range room.Members {
		if room.Members[i].Username == username {
			prevConn = room.Members[i].ConnID
			room.Members[i].ConnID = connID
			return prevConn, nil
		}
	}
	room.Members = append(room.Members, Membership{ConnID: connID, RoomID: roomID, Username: username})
	return "", nil
}

// RemoveMemberByUsername removes the membership with the given username.
// Reports whether a record was removed and whether the room was deleted
// because it became empty.
func (r *Registry) RemoveMemberByUsername(roomID, username string) (removed, deleted bool) {
	return r.removeMember(roomID, func(m Membership) bool { return m.Username == username })
}

// RemoveMemberByConn removes the membership bound to the given connection.
func (r *Registry) RemoveMemberByConn(roomID, connID string) (removed, deleted bool) {
	return r.removeMember(roomID, func(m Membership) bool { return m.ConnID == connID })
}

func (r *Registry) removeMember(roomID string, match func(Membership) bool) (removed, deleted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return false, false
	}
	kept := room.Members[:0]
	for _, m := range room.Members {
		if match(m) {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	room.Members = kept
	if len(room.Members) == 0 {
		delete(r.rooms, roomID)
		deleted = true
	}
	return removed, deleted
}

// FindMembershipByConn scans all rooms for a membership bound to the given
// connection. Disconnect events carry only a connection id, so this is the
// lookup path for them. Linear over rooms, which stay few per process.
func (r *Registry) FindMembershipByConn(connID string) (Membership, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, room := range r.rooms {
		for _, m := range room.Members {
			if m.ConnID == connID {
				return m, true
			}
		}
	}
	return Membership{}, false
}

// RebindConn replaces the connection id on the username's membership in
// place, keeping its position in the join order. Reports whether a record
// was updated.
func (r *Registry) RebindConn(roomID, username, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	for i := range room.Members {
		if room.Members[i].Username == username {
			room.Members[i].ConnID = connID
			return true
		}
	}
	return false
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Snapshot lists every room for the admin surface.
func (r *Registry) Snapshot() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, RoomInfo{ID: room.ID, Name: room.Name, MemberCount: len(room.Members)})
	}
	return out
}

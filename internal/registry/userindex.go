package registry

import "sync"

// Binding records a user's last known connection and room. It is advisory
// reconnection state, not live presence: entries are superseded by later
// binds and are never deleted, so a binding may point at a dead connection
// until the user binds again.
type Binding struct {
	ConnID string
	RoomID string
}

// UserIndex maps usernames to their last known binding.
type UserIndex struct {
	mu    sync.RWMutex
	users map[string]Binding
}

func NewUserIndex() *UserIndex {
	return &UserIndex{users: make(map[string]Binding)}
}

// Bind upserts the binding for username.
func (u *UserIndex) Bind(username, connID, roomID string) {
	u.mu.Lock()
	u.users[username] = Binding{ConnID: connID, RoomID: roomID}
	u.mu.Unlock()
}

// Lookup returns the last known binding for username.
func (u *UserIndex) Lookup(username string) (Binding, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	b, ok := u.users[username]
	return b, ok
}

// Len reports the number of known users.
func (u *UserIndex) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.users)
}

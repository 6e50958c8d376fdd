package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIndexBindAndLookup(t *testing.T) {
	idx := NewUserIndex()

	_, ok := idx.Lookup("alice")
	assert.False(t, ok)

	idx.Bind("alice", "conn1", "room1")
	b, ok := idx.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, Binding{ConnID: "conn1", RoomID: "room1"}, b)
}

func TestUserIndexSupersedesEntries(t *testing.T) {
	idx := NewUserIndex()

	idx.Bind("alice", "conn1", "room1")
	idx.Bind("alice", "conn2", "room2")

	b, ok := idx.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "conn2", b.ConnID)
	assert.Equal(t, "room2", b.RoomID)
	assert.Equal(t, 1, idx.Len(), "binds supersede, never accumulate")
}

// Package hub is the transport-side fan-out layer: it tracks each
// connection's outbound channel and the broadcast group per room, and
// delivers encoded frames without ever blocking the caller.
package hub

import (
	"sync"

	"github.com/RoarthRyoma/ChatWebRoom/internal/event"
	"github.com/RoarthRyoma/ChatWebRoom/internal/metric"
)

// Hub maps connection ids to send channels and room ids to subscriber sets.
// Group membership here mirrors the registry; the registry stays the source
// of truth. The hub owns the sinks it is given: Detach closes them, and all
// pushes happen under the read lock so a push can never hit a closed channel.
type Hub struct {
	mu     sync.RWMutex
	sinks  map[string]chan<- []byte
	groups map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sinks:  make(map[string]chan<- []byte),
		groups: make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection's send channel. The channel is closed by
// Detach, not by the caller.
func (h *Hub) Attach(connID string, sink chan<- []byte) {
	h.mu.Lock()
	h.sinks[connID] = sink
	h.mu.Unlock()
}

// Detach closes and drops the connection's sink and removes it from every
// group, deleting groups that become empty.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sink, ok := h.sinks[connID]; ok {
		delete(h.sinks, connID)
		close(sink)
	}
	for roomID, conns := range h.groups {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.groups, roomID)
		}
	}
}

// Subscribe adds the connection to a room's broadcast group.
func (h *Hub) Subscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[roomID]; !ok {
		h.groups[roomID] = make(map[string]struct{})
	}
	h.groups[roomID][connID] = struct{}{}
}

// Unsubscribe removes the connection from a room's broadcast group.
func (h *Hub) Unsubscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.groups[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.groups, roomID)
		}
	}
}

// SendTo delivers one frame to a single connection.
func (h *Hub) SendTo(connID string, env event.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if sink, ok := h.sinks[connID]; ok {
		push(sink, env.Encode())
	}
}

// BroadcastExcept delivers one frame to every group member but the excluded
// connection. The frame is encoded once; pushes are non-blocking.
func (h *Hub) BroadcastExcept(roomID, exceptConnID string, env event.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.groups[roomID]
	if len(conns) == 0 {
		return
	}
	var frame []byte
	for connID := range conns {
		if connID == exceptConnID {
			continue
		}
		sink, ok := h.sinks[connID]
		if !ok {
			continue
		}
		if frame == nil {
			frame = env.Encode()
		}
		push(sink, frame)
	}
}

func push(sink chan<- []byte, frame []byte) {
	select {
	case sink <- frame:
	default:
		// slow consumer: drop rather than stall the room
		metric.BroadcastsDropped.Inc()
	}
}

// GroupSize reports the number of connections subscribed to a room.
func (h *Hub) GroupSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roomID])
}

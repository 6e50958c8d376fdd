// Package router is the presence state machine. It consumes transport-level
// events, mutates the room registry and user index under a single engine
// lock, and fans outbound events back through the transport. No handler
// returns an error to the transport: every failure mode is a defined
// fallback (auto-create on join, silent no-op on unknown reconnect, explicit
// roomNotExist notice on send).
package router

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RoarthRyoma/ChatWebRoom/internal/event"
	"github.com/RoarthRyoma/ChatWebRoom/internal/feed"
	"github.com/RoarthRyoma/ChatWebRoom/internal/metric"
	"github.com/RoarthRyoma/ChatWebRoom/internal/presence"
	"github.com/RoarthRyoma/ChatWebRoom/internal/registry"
)

// Transport delivers outbound events to connections. Subscribe/Unsubscribe
// manage a room's broadcast group; sends must never block.
type Transport interface {
	Subscribe(roomID, connID string)
	Unsubscribe(roomID, connID string)
	SendTo(connID string, env event.Envelope)
	BroadcastExcept(roomID, exceptConnID string, env event.Envelope)
}

// Options carries the optional collaborators and policy knobs.
type Options struct {
	// EvictionGrace is how long a soft-disconnected member keeps its room
	// slot. Zero keeps ghosts forever, matching the original behavior.
	EvictionGrace time.Duration
	Feed          *feed.Producer
	Presence      *presence.Store
}

// Router mediates every join/leave/reconnect/disconnect/message transition.
// A connection is Unbound until a join binds it to exactly one room; a
// second join evicts the first binding.
type Router struct {
	mu  sync.Mutex
	reg *registry.Registry
	idx *registry.UserIndex
	tr  Transport
	log *zap.SugaredLogger

	grace    time.Duration
	feed     *feed.Producer
	presence *presence.Store

	// pending ghost evictions, keyed by the disconnected connection id
	timers map[string]*time.Timer
}

func New(reg *registry.Registry, idx *registry.UserIndex, tr Transport, log *zap.SugaredLogger, opts Options) *Router {
	return &Router{
		reg:      reg,
		idx:      idx,
		tr:       tr,
		log:      log,
		grace:    opts.EvictionGrace,
		feed:     opts.Feed,
		presence: opts.Presence,
		timers:   make(map[string]*time.Timer),
	}
}

// HandleJoin binds the connection to the requested room, creating the room
// when the id is absent or unknown. The joiner alone gets joinRoomResponse;
// existing members get userJoined.
func (r *Router) HandleJoin(connID string, p event.JoinRoom) {
	metric.Events.WithLabelValues(event.JoinRoomEvent).Inc()
	username := p.User.Username
	if username == "" {
		r.log.Warnw("join without username", "conn", connID)
		return
	}

	r.mu.Lock()
	// A connection holds at most one membership. Any existing binding that
	// differs in room or username is evicted first, with a userLeft to the
	// old room.
	var evicted *registry.Membership
	if m, ok := r.reg.FindMembershipByConn(connID); ok && (m.RoomID != p.RoomID || m.Username != username) {
		r.reg.RemoveMemberByConn(m.RoomID, connID)
		r.tr.Unsubscribe(m.RoomID, connID)
		evicted = &m
	}

	roomID := p.RoomID
	roomName := p.RoomName
	created := false
	if room, ok := r.reg.Get(roomID); ok {
		roomName = room.Name
	} else {
		roomID = r.reg.CreateRoom(p.RoomName)
		created = true
	}
	prev, err := r.reg.AddMember(roomID, connID, username)
	if err != nil {
		// room vanished between Get and AddMember cannot happen under r.mu;
		// guard anyway so a bug degrades to a log line, not a crash
		r.mu.Unlock()
		r.log.Errorw("add member", "room", roomID, "user", username, "err", err)
		return
	}
	if prev != "" && prev != connID {
		// same username moved to a fresh connection; the superseded one no
		// longer backs any membership, so it leaves the broadcast group
		r.tr.Unsubscribe(roomID, prev)
		r.cancelEvictionLocked(prev)
	}
	r.idx.Bind(username, connID, roomID)
	r.tr.Subscribe(roomID, connID)
	r.cancelEvictionLocked(connID)
	metric.Rooms.Set(float64(r.reg.Len()))
	r.mu.Unlock()

	if evicted != nil {
		r.tr.BroadcastExcept(evicted.RoomID, connID, event.NewEnvelope(event.UserLeftEvent, event.UserLeft{Username: evicted.Username}))
	}
	if !created {
		r.tr.BroadcastExcept(roomID, connID, event.NewEnvelope(event.UserJoinedEvent, event.UserJoined{Username: username}))
	}
	r.tr.SendTo(connID, event.NewEnvelope(event.JoinRoomResponseEvent, event.JoinRoomResponse{
		Code:     event.CodeOK,
		RoomID:   roomID,
		RoomName: roomName,
	}))

	r.log.Infow("join", "room", roomID, "user", username, "created", created)
	if created {
		_ = r.feed.Publish(context.Background(), feed.Event{Type: feed.RoomCreated, RoomID: roomID})
	}
	_ = r.feed.Publish(context.Background(), feed.Event{Type: feed.Joined, RoomID: roomID, Username: username})
	go func() { _ = r.presence.MarkOnline(context.Background(), username, roomID) }()
}

// HandleLeave removes the member from the room. The userLeft broadcast goes
// out before the leaver is unsubscribed so the notification cannot race the
// unsubscription; the room is deleted with the removal if it empties.
func (r *Router) HandleLeave(connID string, p event.LeaveRoom) {
	metric.Events.WithLabelValues(event.LeaveRoomEvent).Inc()

	r.mu.Lock()
	if _, ok := r.reg.Get(p.RoomID); !ok {
		r.mu.Unlock()
		r.log.Debugw("leave for unknown room", "room", p.RoomID, "user", p.NickName)
		return
	}
	// sends are non-blocking, so broadcasting inside the critical section is
	// bounded and keeps the required ordering
	r.tr.BroadcastExcept(p.RoomID, connID, event.NewEnvelope(event.UserLeftEvent, event.UserLeft{Username: p.NickName}))
	r.tr.Unsubscribe(p.RoomID, connID)
	removed, deleted := r.reg.RemoveMemberByUsername(p.RoomID, p.NickName)
	r.cancelEvictionLocked(connID)
	metric.Rooms.Set(float64(r.reg.Len()))
	r.mu.Unlock()

	r.log.Infow("leave", "room", p.RoomID, "user", p.NickName, "removed", removed, "roomDeleted", deleted)
	if removed {
		_ = r.feed.Publish(context.Background(), feed.Event{Type: feed.Left, RoomID: p.RoomID, Username: p.NickName})
	}
}

// HandleReconnect rebinds a returning user's fresh connection to their last
// known room. The stale membership's connection id is corrected in place so
// later disconnect handling finds the right record. Unknown usernames are a
// silent no-op.
func (r *Router) HandleReconnect(connID string, p event.Reconnect) {
	metric.Events.WithLabelValues(event.ReconnectEvent).Inc()

	r.mu.Lock()
	b, ok := r.idx.Lookup(p.Username)
	if !ok {
		r.mu.Unlock()
		return
	}
	r.cancelEvictionLocked(b.ConnID)
	if !r.reg.RebindConn(b.RoomID, p.Username, connID) {
		// last known room is gone; the index entry stays as advisory state
		r.mu.Unlock()
		r.log.Warnw("reconnect to vanished room", "room", b.RoomID, "user", p.Username)
		return
	}
	r.idx.Bind(p.Username, connID, b.RoomID)
	if b.ConnID != connID {
		r.tr.Unsubscribe(b.RoomID, b.ConnID)
	}
	r.tr.Subscribe(b.RoomID, connID)
	r.mu.Unlock()

	r.log.Infow("reconnect", "room", b.RoomID, "user", p.Username, "conn", connID)
	go func() { _ = r.presence.MarkOnline(context.Background(), p.Username, b.RoomID) }()
}

// HandleDisconnect reports a dropped transport to the rest of the member's
// room. The membership itself is retained (soft disconnect) so the user can
// reconnect into their slot; if an eviction grace is configured, a timer
// reclaims the slot when no reconnect arrives in time.
func (r *Router) HandleDisconnect(connID, reason string) {
	metric.Events.WithLabelValues("disconnect").Inc()

	r.mu.Lock()
	m, ok := r.reg.FindMembershipByConn(connID)
	if !ok {
		r.mu.Unlock()
		return
	}
	r.tr.BroadcastExcept(m.RoomID, connID, event.NewEnvelope(event.UserDisconnectedEvent, event.UserDisconnected{
		Username: m.Username,
		RoomID:   m.RoomID,
		Reason:   reason,
	}))
	if r.grace > 0 {
		r.cancelEvictionLocked(connID)
		r.timers[connID] = time.AfterFunc(r.grace, func() { r.evictGhost(connID) })
	}
	r.mu.Unlock()

	r.log.Infow("disconnect", "room", m.RoomID, "user", m.Username, "reason", reason)
	_ = r.feed.Publish(context.Background(), feed.Event{Type: feed.Disconnected, RoomID: m.RoomID, Username: m.Username, Reason: reason})
	go func() { _ = r.presence.MarkOffline(context.Background(), m.Username, reason) }()
}

// HandleMessage relays a chat frame to every other member of the room under
// the counterpart event name. The payload is passed through verbatim; the
// sender gets no echo. A vanished room earns the sender a roomNotExist
// notice instead.
func (r *Router) HandleMessage(connID, inboundEvent string, p event.ChatMessage, raw json.RawMessage) {
	metric.Events.WithLabelValues(inboundEvent).Inc()

	if _, ok := r.reg.Get(p.RoomID); !ok {
		r.tr.SendTo(connID, event.NewEnvelope(event.RoomNotExistEvent, event.RoomNotExist{Message: event.RoomClosedNotice}))
		r.log.Debugw("message for unknown room", "room", p.RoomID, "user", p.Nickname)
		return
	}
	r.tr.BroadcastExcept(p.RoomID, connID, event.Raw(event.Counterpart(inboundEvent), raw))
	metric.MessagesRouted.Inc()
}

// evictGhost reclaims the room slot of a member whose grace period expired
// without a reconnect.
func (r *Router) evictGhost(connID string) {
	r.mu.Lock()
	delete(r.timers, connID)
	m, ok := r.reg.FindMembershipByConn(connID)
	if !ok {
		// reconnected under a new connection id, or left explicitly
		r.mu.Unlock()
		return
	}
	r.tr.BroadcastExcept(m.RoomID, connID, event.NewEnvelope(event.UserLeftEvent, event.UserLeft{Username: m.Username}))
	r.tr.Unsubscribe(m.RoomID, connID)
	r.reg.RemoveMemberByConn(m.RoomID, connID)
	metric.Rooms.Set(float64(r.reg.Len()))
	metric.GhostEvictions.Inc()
	r.mu.Unlock()

	r.log.Infow("ghost evicted", "room", m.RoomID, "user", m.Username)
	_ = r.feed.Publish(context.Background(), feed.Event{Type: feed.Evicted, RoomID: m.RoomID, Username: m.Username})
}

func (r *Router) cancelEvictionLocked(connID string) {
	if t, ok := r.timers[connID]; ok {
		t.Stop()
		delete(r.timers, connID)
	}
}

// Shutdown stops any pending eviction timers.
func (r *Router) Shutdown() {
	r.mu.Lock()
	for connID, t := range r.timers {
		t.Stop()
		delete(r.timers, connID)
	}
	r.mu.Unlock()
}

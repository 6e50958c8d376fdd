// Package event defines the wire format exchanged with chat clients: a thin
// envelope carrying an event name plus a raw JSON payload, and the typed
// payloads for every inbound and outbound event the engine understands.
package event

import "encoding/json"

// Inbound event names.
const (
	JoinRoomEvent       = "joinRoom"
	LeaveRoomEvent      = "leaveRoom"
	ReconnectEvent      = "reconnect"
	SendMessageEvent    = "sendMessage"
	ReceiveMessageEvent = "receiveMessage"
)

// Outbound event names.
const (
	JoinRoomResponseEvent = "joinRoomResponse"
	UserJoinedEvent       = "userJoined"
	UserLeftEvent         = "userLeft"
	UserDisconnectedEvent = "userDisconnected"
	RoomNotExistEvent     = "roomNotExist"
)

// Join response codes.
const (
	CodeOK     = 0
	CodeFailed = 1
)

// RoomClosedNotice is sent to a client whose message targets a room that no
// longer exists.
const RoomClosedNotice = "The room where you sent the message has been closed. Please create another one."

// Envelope is the standard wire format for ws messages.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an envelope for the given event name.
// Payload types in this package cannot fail to marshal, so encoding errors
// surface as an empty data field rather than an error return.
func NewEnvelope(name string, payload any) Envelope {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{Event: name}
	}
	return Envelope{Event: name, Data: b}
}

// Raw wraps an already-encoded payload without re-marshaling it. Used when
// relaying a sender's message body verbatim to the rest of a room.
func Raw(name string, data json.RawMessage) Envelope {
	return Envelope{Event: name, Data: data}
}

// Encode renders the envelope as a JSON frame.
func (e Envelope) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Decode unmarshals the envelope data into the given payload struct.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// User identifies the joining participant inside a JoinRoom payload.
type User struct {
	Username string `json:"username"`
}

// JoinRoom asks to enter an existing room, or to create one when RoomID is
// empty or unknown.
type JoinRoom struct {
	RoomID   string `json:"roomId,omitempty"`
	RoomName string `json:"roomName"`
	User     User   `json:"user"`
}

// LeaveRoom announces an explicit departure.
type LeaveRoom struct {
	RoomID   string `json:"roomId"`
	NickName string `json:"nickName"`
}

// Reconnect asks to rebind a fresh connection to the user's last known room.
type Reconnect struct {
	Username string `json:"username"`
}

// ChatMessage is the body of sendMessage/receiveMessage frames. The engine
// only inspects RoomID; the rest is relayed untouched.
type ChatMessage struct {
	RoomID   string `json:"roomId"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar,omitempty"`
	Message  string `json:"message"`
}

// JoinRoomResponse is sent to the joining connection alone.
type JoinRoomResponse struct {
	Code     int    `json:"code"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

// UserJoined notifies existing members that someone entered their room.
type UserJoined struct {
	Username string `json:"username"`
}

// UserLeft notifies remaining members that someone left their room.
type UserLeft struct {
	Username string `json:"username"`
}

// UserDisconnected notifies remaining members that a member's transport
// dropped without an explicit leave.
type UserDisconnected struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
	Reason   string `json:"reason"`
}

// RoomNotExist tells a sender that the target room is gone.
type RoomNotExist struct {
	Message string `json:"message"`
}

// Counterpart returns the outbound event name a chat frame is relayed under.
// The protocol mirrors the two message verbs: a sendMessage frame reaches the
// room as receiveMessage and vice versa.
func Counterpart(inbound string) string {
	if inbound == ReceiveMessageEvent {
		return SendMessageEvent
	}
	return ReceiveMessageEvent
}

package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeEncodeDecode(t *testing.T) {
	env := NewEnvelope(JoinRoomEvent, JoinRoom{
		RoomID:   "r1",
		RoomName: "Party",
		User:     User{Username: "alice"},
	})
	frame := env.Encode()
	assert.JSONEq(t, `{"event":"joinRoom","data":{"roomId":"r1","roomName":"Party","user":{"username":"alice"}}}`, string(frame))

	var decoded Envelope
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, JoinRoomEvent, decoded.Event)

	var p JoinRoom
	require.NoError(t, decoded.Decode(&p))
	assert.Equal(t, "alice", p.User.Username)
}

func TestJoinRoomOmitsEmptyRoomID(t *testing.T) {
	env := NewEnvelope(JoinRoomEvent, JoinRoom{RoomName: "Party", User: User{Username: "alice"}})
	assert.NotContains(t, string(env.Encode()), "roomId")
}

func TestDecodeMalformedData(t *testing.T) {
	env := Envelope{Event: LeaveRoomEvent, Data: json.RawMessage(`{"roomId":42}`)}
	var p LeaveRoom
	assert.Error(t, env.Decode(&p))
}

func TestRawPreservesPayloadBytes(t *testing.T) {
	body := json.RawMessage(`{"roomId":"r1","nickname":"bob","avatar":"cat","message":"hi","extra":"kept"}`)
	env := Raw(ReceiveMessageEvent, body)
	assert.JSONEq(t, `{"event":"receiveMessage","data":{"roomId":"r1","nickname":"bob","avatar":"cat","message":"hi","extra":"kept"}}`,
		string(env.Encode()))
}

func TestCounterpart(t *testing.T) {
	assert.Equal(t, ReceiveMessageEvent, Counterpart(SendMessageEvent))
	assert.Equal(t, SendMessageEvent, Counterpart(ReceiveMessageEvent))
}

// Package ws bridges gofiber websocket connections to the event router:
// one read pump decoding envelopes, one write pump draining the hub sink.
package ws

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/RoarthRyoma/ChatWebRoom/internal/event"
	"github.com/RoarthRyoma/ChatWebRoom/internal/router"
)

// Client is one websocket connection with its server-assigned id.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	router  *router.Router
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	maxMsgSize    int64
	pingInterval  time.Duration
	writeDeadline time.Duration
}

func newClient(id string, conn *websocket.Conn, rt *router.Router, log *zap.SugaredLogger, opts Options) *Client {
	return &Client{
		id:            id,
		conn:          conn,
		send:          make(chan []byte, 256),
		router:        rt,
		limiter:       rate.NewLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitPerSec),
		log:           log,
		maxMsgSize:    opts.MaxMessageSize,
		pingInterval:  opts.PingInterval,
		writeDeadline: opts.WriteDeadline,
	}
}

// readPump reads frames until the transport drops, dispatching each envelope
// to the router. A malformed frame is skipped, never fatal.
func (c *Client) readPump() (reason string) {
	reason = "connection closed"

	c.conn.SetReadLimit(c.maxMsgSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = err.Error()
			}
			return reason
		}
		if !c.limiter.Allow() {
			c.log.Debugw("rate limit exceeded", "conn", c.id)
			continue
		}

		var env event.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Debugw("malformed frame", "conn", c.id, "err", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env event.Envelope) {
	switch env.Event {
	case event.JoinRoomEvent:
		var p event.JoinRoom
		if env.Decode(&p) == nil {
			c.router.HandleJoin(c.id, p)
		}
	case event.LeaveRoomEvent:
		var p event.LeaveRoom
		if env.Decode(&p) == nil {
			c.router.HandleLeave(c.id, p)
		}
	case event.ReconnectEvent:
		var p event.Reconnect
		if env.Decode(&p) == nil {
			c.router.HandleReconnect(c.id, p)
		}
	case event.SendMessageEvent, event.ReceiveMessageEvent:
		var p event.ChatMessage
		if env.Decode(&p) == nil {
			c.router.HandleMessage(c.id, env.Event, p, env.Data)
		}
	default:
		c.log.Debugw("unknown event", "conn", c.id, "event", env.Event)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings. It exits when the hub closes the sink on detach or when
// a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}


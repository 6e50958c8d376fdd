package ws

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RoarthRyoma/ChatWebRoom/internal/hub"
	"github.com/RoarthRyoma/ChatWebRoom/internal/metric"
	"github.com/RoarthRyoma/ChatWebRoom/internal/router"
)

// Options holds the per-connection transport knobs.
type Options struct {
	PingInterval    time.Duration
	WriteDeadline   time.Duration
	MaxMessageSize  int64
	RateLimitPerSec int
}

// Handler returns the websocket.New callback wiring each new connection into
// the hub and router. The connection id is generated server-side; clients
// never pick their own.
func Handler(h *hub.Hub, rt *router.Router, log *zap.SugaredLogger, opts Options) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		id := uuid.NewString()
		c := newClient(id, conn, rt, log, opts)

		h.Attach(id, c.send)
		metric.Connections.Inc()
		log.Infow("connected", "conn", id, "remote", conn.RemoteAddr().String())

		go c.writePump()
		reason := c.readPump()

		// report the drop exactly once, while the peer connections can
		// still be notified, then tear the transport state down; Detach
		// closes the sink, which stops the write pump
		rt.HandleDisconnect(id, reason)
		h.Detach(id)
		metric.Connections.Dec()
		log.Infow("closed", "conn", id, "reason", reason)
	}
}

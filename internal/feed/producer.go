// Package feed publishes room and presence lifecycle events to Kafka for
// downstream consumers (audit, analytics). Chat payloads are never published.
package feed

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Lifecycle event types.
const (
	RoomCreated  = "room_created"
	Joined       = "joined"
	Left         = "left"
	Disconnected = "disconnected"
	Evicted      = "evicted"
)

// Event is one lifecycle transition.
type Event struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"room_id"`
	Username string    `json:"username,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// Producer writes lifecycle events. A nil *Producer is valid and publishes
// nothing. The writer runs async so Publish never blocks the event router.
type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
	}
	return &Producer{writer: w}
}

// Publish enqueues one event, keyed by room so per-room ordering holds.
func (p *Producer) Publish(ctx context.Context, evt Event) error {
	if p == nil || p.writer == nil {
		return nil
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(evt.RoomID),
		Value: b,
		Time:  evt.At,
	})
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

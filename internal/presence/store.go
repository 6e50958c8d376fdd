// Package presence mirrors presence transitions into Redis for external
// dashboards. It is write-only from the engine's point of view: nothing here
// is ever read back into the room registry.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store writes last-seen presence records under prefixed keys with a TTL.
// A nil *Store is valid and publishes nothing.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(username string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, username)
}

type record struct {
	Status   string `json:"status"`
	RoomID   string `json:"room_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
	LastSeen int64  `json:"last_seen"`
}

// MarkOnline records that username is bound to roomID.
func (s *Store) MarkOnline(ctx context.Context, username, roomID string) error {
	return s.set(ctx, username, record{Status: "online", RoomID: roomID, LastSeen: time.Now().Unix()})
}

// MarkOffline records that username's transport dropped.
func (s *Store) MarkOffline(ctx context.Context, username, reason string) error {
	return s.set(ctx, username, record{Status: "offline", Reason: reason, LastSeen: time.Now().Unix()})
}

func (s *Store) set(ctx context.Context, username string, rec record) error {
	if s == nil || s.client == nil {
		return nil
	}
	b, _ := json.Marshal(rec)
	return s.client.Set(ctx, s.key(username), b, s.ttl).Err()
}

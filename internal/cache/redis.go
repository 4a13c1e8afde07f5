// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel lifecycle events go to.
const DefaultChannel = "unuscado:lifecycle"

// EventKind is the lifecycle step a LifecycleEvent announces.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventStarted EventKind = "started"
	EventEnded   EventKind = "ended"
)

// LifecycleEvent is published when a session is created, started or ended.
// Nothing is stored; subscribers that are not listening miss it.
type LifecycleEvent struct {
	Kind      EventKind `json:"kind"`
	GameID    uuid.UUID `json:"game_id"`
	Players   int       `json:"players,omitempty"`
	WinnerID  string    `json:"winner_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Publisher announces session lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, ev LifecycleEvent) error
	Close() error
}

// Nop discards every event. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, LifecycleEvent) error { return nil }
func (Nop) Close() error                                  { return nil }

// RedisPublisher publishes events as JSON on a Redis channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel, now: time.Now}
}

// ConnectRedis opens a client and checks it answers a ping within five seconds.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publish stamps ev if needed and sends it on the channel.
func (p *RedisPublisher) Publish(ctx context.Context, ev LifecycleEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = p.now().UnixMilli()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal LifecycleEvent: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel '%s': %w", p.channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

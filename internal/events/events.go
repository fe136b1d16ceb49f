// Package events publishes domain notifications for downstream consumers.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel names.
const (
	ChannelStatusChanged = "job.status_changed"
	ChannelSyncCompleted = "sync.completed"
)

// StatusChanged is sent when a stored record changes status.
type StatusChanged struct {
	RecordID       string    `json:"record_id"`
	SourcePlatform string    `json:"source_platform"`
	SourceID       string    `json:"source_id"`
	Title          string    `json:"title"`
	CompanyName    string    `json:"company_name"`
	OldStatus      string    `json:"old_status"`
	NewStatus      string    `json:"new_status"`
	ChangedAt      time.Time `json:"changed_at"`
}

// SyncCompleted summarizes one upsert batch.
type SyncCompleted struct {
	Total       int       `json:"total"`
	New         int       `json:"new"`
	Updated     int       `json:"updated"`
	Errors      int       `json:"errors"`
	Unstable    int       `json:"unstable"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher sends a JSON-encodable payload to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	Close() error
}

// RedisPublisher publishes over Redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates and verifies a Redis client connection.
func NewRedisPublisher(ctx context.Context, redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisPublisher{rdb: rdb}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", channel, err)
	}
	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// Message is one event captured by a Recorder.
type Message struct {
	Channel string
	Payload json.RawMessage
}

// Recorder keeps published events in memory. Used by dry runs and tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	// Err, when set, is returned from every Publish.
	Err error
}

func (r *Recorder) Publish(_ context.Context, channel string, payload any) error {
	if r.Err != nil {
		return r.Err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Channel: channel, Payload: data})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Messages returns a copy of what was published, optionally limited to channel.
func (r *Recorder) Messages(channel string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if channel == "" || m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

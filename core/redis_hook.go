package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// RedisHook appends JSON-encoded events to a Redis list so other processes
// can follow an agent's responses.
type RedisHook struct {
	client    *RedisClient
	key       string
	ttl       time.Duration
	ownClient bool
	logger    Logger

	mu     sync.Mutex
	closed bool
}

// RedisHookOptions configures a RedisHook
type RedisHookOptions struct {
	Key    string        // List key inside the client's namespace
	TTL    time.Duration // Refreshed on every emit, zero disables expiry
	Logger Logger
	// OwnClient makes Close also close the Redis client
	OwnClient bool
}

// NewRedisHook creates a hook writing to the list named opts.Key
func NewRedisHook(client *RedisClient, opts RedisHookOptions) (*RedisHook, error) {
	if client == nil {
		return nil, &FrameworkError{
			Op:      "NewRedisHook",
			Kind:    "hook",
			Message: "redis client is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if opts.Key == "" {
		return nil, &FrameworkError{
			Op:      "NewRedisHook",
			Kind:    "hook",
			Message: "redis hook key is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if opts.Logger == nil {
		opts.Logger = &NoOpLogger{}
	}

	return &RedisHook{
		client:    client,
		key:       opts.Key,
		ttl:       opts.TTL,
		ownClient: opts.OwnClient,
		logger:    opts.Logger,
	}, nil
}

// Emit pushes the event onto the tail of the list
func (h *RedisHook) Emit(ctx context.Context, event Event) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return NewFrameworkError("RedisHook.Emit", "hook", ErrHookClosed)
	}
	if err := ctx.Err(); err != nil {
		return &FrameworkError{Op: "RedisHook.Emit", Kind: "hook", ID: event.ID, Err: redisError(err)}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return &FrameworkError{Op: "RedisHook.Emit", Kind: "hook", ID: event.ID, Err: err}
	}

	if _, err := h.client.RPush(ctx, h.key, data); err != nil {
		h.logger.Error("Failed to push event", map[string]interface{}{
			"error":    err.Error(),
			"key":      h.key,
			"event_id": event.ID,
		})
		return &FrameworkError{
			Op:   "RedisHook.Emit",
			Kind: "hook",
			ID:   event.ID,
			Err:  redisError(err),
		}
	}

	if h.ttl > 0 {
		if err := h.client.Expire(ctx, h.key, h.ttl); err != nil {
			h.logger.Warn("Failed to refresh event list TTL", map[string]interface{}{
				"error": err.Error(),
				"key":   h.key,
			})
		}
	}

	h.logger.Debug("Event pushed", map[string]interface{}{
		"key":          h.key,
		"event_id":     event.ID,
		"event_name":   event.EventName,
		"content_type": string(event.ContentType),
	})
	return nil
}

// Events reads every event stored in the list, oldest first
func (h *RedisHook) Events(ctx context.Context) ([]Event, error) {
	raw, err := h.client.LRange(ctx, h.key, 0, -1)
	if err != nil {
		return nil, &FrameworkError{
			Op:   "RedisHook.Events",
			Kind: "hook",
			Err:  redisError(err),
		}
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, &FrameworkError{Op: "RedisHook.Events", Kind: "hook", Err: err}
		}
		events = append(events, ev)
	}
	return events, nil
}

// redisError maps a Redis failure onto the framework sentinels.
// Deadlines become ErrTimeout, cancellation is returned as is, anything
// else is ErrConnectionFailed.
func redisError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
}

// Key returns the list key, without namespace
func (h *RedisHook) Key() string {
	return h.key
}

// Close stops the hook from accepting events
func (h *RedisHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.ownClient {
		return h.client.Close()
	}
	return nil
}

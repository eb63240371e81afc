package core

import (
	"context"
	"sync"
)

// Hook receives every event a ResponseHandler emits, in emission order
type Hook interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

// DefaultHook keeps emitted events in an in-memory ordered queue.
// It is safe for concurrent use.
type DefaultHook struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
}

// NewDefaultHook creates a hook whose queue starts with the given events.
// The slice is copied, so later changes by the caller are not observed.
func NewDefaultHook(initial []Event) *DefaultHook {
	queue := make([]Event, len(initial))
	copy(queue, initial)
	return &DefaultHook{queue: queue}
}

// Emit appends the event to the queue
func (h *DefaultHook) Emit(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return NewFrameworkError("DefaultHook.Emit", "hook", ErrHookClosed)
	}
	h.queue = append(h.queue, event)
	return nil
}

// Events returns a snapshot of the queued events
func (h *DefaultHook) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, len(h.queue))
	copy(out, h.queue)
	return out
}

// Len returns the number of queued events
func (h *DefaultHook) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Drain removes and returns every queued event
func (h *DefaultHook) Drain() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := h.queue
	h.queue = nil
	return out
}

// Close stops the hook from accepting events. Queued events stay readable.
func (h *DefaultHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

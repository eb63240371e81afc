package core

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHookStartsWithRegistrations(t *testing.T) {
	initial := []Event{
		{ID: "1", EventName: "first"},
		{ID: "2", EventName: "second"},
	}
	hook := NewDefaultHook(initial)

	initial[0].EventName = "mutated"

	events := hook.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].EventName, "hook should copy initial registrations")
	assert.Equal(t, "second", events[1].EventName)
}

func TestDefaultHookEmptyRegistrations(t *testing.T) {
	hook := NewDefaultHook([]Event{})
	assert.Equal(t, 0, hook.Len())
	assert.Empty(t, hook.Events())
}

func TestDefaultHookPreservesOrder(t *testing.T) {
	hook := NewDefaultHook(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, hook.Emit(ctx, Event{ID: fmt.Sprintf("%d", i)}))
	}

	events := hook.Drain()
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("%d", i), ev.ID)
	}
	assert.Equal(t, 0, hook.Len(), "drain should empty the queue")
}

func TestDefaultHookClose(t *testing.T) {
	hook := NewDefaultHook(nil)
	ctx := context.Background()

	require.NoError(t, hook.Emit(ctx, Event{ID: "before"}))
	require.NoError(t, hook.Close())

	err := hook.Emit(ctx, Event{ID: "after"})
	assert.ErrorIs(t, err, ErrHookClosed)
	assert.Len(t, hook.Events(), 1, "queued events stay readable after close")
}

func TestDefaultHookCanceledContext(t *testing.T) {
	hook := NewDefaultHook(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := hook.Emit(ctx, Event{ID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, hook.Len())
}

func TestDefaultHookConcurrentEmit(t *testing.T) {
	hook := NewDefaultHook(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = hook.Emit(ctx, Event{ID: fmt.Sprintf("%d-%d", n, j)})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, hook.Len())
}

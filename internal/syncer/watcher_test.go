package syncer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsTransitions(t *testing.T) {
	var reachable atomic.Bool
	reachable.Store(false)
	probe := func(ctx context.Context) bool { return reachable.Load() }

	watcher := NewWatcher(probe, 5*time.Millisecond, zerolog.Nop())
	events := watcher.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	// First probe observes offline.
	require.False(t, waitForEvent(t, events))
	require.False(t, watcher.Online())

	reachable.Store(true)
	require.True(t, waitForEvent(t, events))
	require.True(t, watcher.Online())

	reachable.Store(false)
	require.False(t, waitForEvent(t, events))
	require.False(t, watcher.Online())
}

func TestWatcherOnlineOptimisticBeforeFirstProbe(t *testing.T) {
	watcher := NewWatcher(func(ctx context.Context) bool { return false }, time.Minute, zerolog.Nop())
	require.True(t, watcher.Online())
}

func waitForEvent(t *testing.T, events <-chan bool) bool {
	t.Helper()
	select {
	case online := <-events:
		return online
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connectivity event")
		return false
	}
}

package signals

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raise(t *testing.T, sig os.Signal) {
	t.Helper()
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, proc.Signal(sig))
}

func TestSetupHandler_CancelsContextOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanup := SetupHandler(ctx, cancel)
	defer cleanup()

	raise(t, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Context was not cancelled after signal")
	}
}

func TestSetupHandler_CleansUpOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cleanup := SetupHandler(ctx, cancel)
	cancel()

	// Cleanup waits for the handler and may be called twice
	cleanup()
	cleanup()
}

func TestOnReload_CallsReloadForEachSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	cleanup := OnReload(ctx, func() { reloads.Add(1) })
	defer cleanup()

	raise(t, syscall.SIGHUP)
	require.Eventually(t, func() bool { return reloads.Load() == 1 }, time.Second, 10*time.Millisecond)

	raise(t, syscall.SIGHUP)
	require.Eventually(t, func() bool { return reloads.Load() == 2 }, time.Second, 10*time.Millisecond)

	assert.NoError(t, ctx.Err(), "reload must not cancel the context")
}

func TestOnReload_StopsAfterCleanup(t *testing.T) {
	var reloads atomic.Int32
	cleanup := OnReload(context.Background(), func() { reloads.Add(1) })
	cleanup()

	assert.Zero(t, reloads.Load())
}

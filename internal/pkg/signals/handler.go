// Package signals maps process signals to shutdown and reload actions.
package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/endorses/gridsync/internal/pkg/constants"
	"github.com/endorses/gridsync/internal/pkg/logger"
)

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// SetupHandler calls cancel on SIGINT or SIGTERM.
// Returns a cleanup function that should be called when the signal handler is no longer needed
func SetupHandler(ctx context.Context, cancel context.CancelFunc) (cleanup func()) {
	return watch(ctx, shutdownSignals, func(sig os.Signal) bool {
		logger.Info("Received signal, initiating shutdown", "signal", sig.String())
		cancel()
		return false
	})
}

// OnReload calls reload for every SIGHUP until ctx is done or cleanup is called.
// `gridsync view` reloads its table file this way.
func OnReload(ctx context.Context, reload func()) (cleanup func()) {
	return watch(ctx, []os.Signal{syscall.SIGHUP}, func(sig os.Signal) bool {
		logger.Info("Received signal, reloading", "signal", sig.String())
		reload()
		return true
	})
}

// watch passes each of sigs to handle until handle returns false
func watch(ctx context.Context, sigs []os.Signal, handle func(os.Signal) bool) func() {
	sigCh := make(chan os.Signal, constants.SignalChannelBuffer)
	signal.Notify(sigCh, sigs...)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case sig := <-sigCh:
				if !handle(sig) {
					return
				}
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(stop)
			<-done
		})
	}
}

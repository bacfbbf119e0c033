package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

var (
	signalCtx context.Context
	cancel    context.CancelFunc
	once      sync.Once
)

// Context returns a Context registered to close on SIGTERM and SIGINT.
// If a second signal is caught, the program is terminated with exit code 1.
func Context() context.Context {
	once.Do(func() {
		signalCtx, cancel = WithShutdown(context.Background(), func() { os.Exit(1) })
	})

	return signalCtx
}

// WithShutdown returns a copy of parent that is cancelled on the first
// shutdown signal. A second signal calls onSecond, which may be nil.
func WithShutdown(parent context.Context, onSecond func()) (context.Context, context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, shutdownSignals...)
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
			signal.Stop(c)
			return
		}

		select {
		case <-c:
			if onSecond != nil {
				onSecond() // second signal. Exit directly.
			}
		case <-parent.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}

package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Context returns a child of parent that is cancelled on SIGINT or
// SIGTERM, so a running search stops at its current horizon. If a
// second signal is caught, the program is terminated with exit code 1.
// Calling stop releases the signal handler.
func Context(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, stop, _ = notify(parent)
	return ctx, stop
}

// notify is Context, also returning a channel closed once the handler
// goroutine has returned.
func notify(parent context.Context) (context.Context, context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	c := make(chan os.Signal, 2)
	done := make(chan struct{})
	exited := make(chan struct{})
	signal.Notify(c, shutdownSignals...)
	go func() {
		defer close(exited)
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
			signal.Stop(c)
			return
		case <-done:
			return
		}
		select {
		case <-c:
			os.Exit(1) // second signal. Exit directly.
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(c)
			close(done)
			cancel()
		})
	}, exited
}

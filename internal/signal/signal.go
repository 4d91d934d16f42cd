// Package signal wires process signals into the viewer's event loop.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyContext returns a context that is cancelled when SIGINT or
// SIGTERM is received.
func NotifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// WatchContinue sends an empty struct on ch every time the process
// receives SIGCONT (i.e. after a Ctrl-Z suspend and `fg` resume), so the
// UI Controller can force a full redraw and invalidate the Kitty image
// set per spec.md scenario 6. The returned stop function releases the
// signal handler; callers should defer it.
func WatchContinue(ch chan<- struct{}) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGCONT)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				select {
				case ch <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext derives a context from parent that is canceled on SIGINT
// or SIGTERM. The returned stop function cancels it and releases the signal
// registration; a later signal then falls through to the default handler,
// so a stuck cleanup can still be killed with a second Ctrl-C.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// WaitForShutdown returns a channel that receives the first SIGINT or
// SIGTERM. Used by the daemon's select loop, where the signal value is
// logged before shutdown begins.
func WaitForShutdown() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	return sigChan
}

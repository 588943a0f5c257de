// Package os waits for the process to be asked to stop.
package os

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Terminated is closed on the first SIGINT or SIGTERM.
// Later signals get the default behavior back.
func Terminated() <-chan struct{} {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx.Done()
}

package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForInterrupt blocks until SIGINT or SIGTERM arrives or ctx ends. It returns the
// signal received, or nil when ctx ended first.
func WaitForInterrupt(ctx context.Context) os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	return waitForSignal(ctx, signals)
}

func waitForSignal(ctx context.Context, signals <-chan os.Signal) os.Signal {
	select {
	case sig := <-signals:
		return sig
	case <-ctx.Done():
		return nil
	}
}

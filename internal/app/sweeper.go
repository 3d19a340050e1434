package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// sweeper drops expired entries from an in-process store.
type sweeper interface {
	Sweep() int
}

// startSweeper sweeps every target each interval. The returned func stops the
// loop and waits for it to exit.
func startSweeper(interval time.Duration, logger *zap.Logger, targets ...sweeper) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := 0
				for _, t := range targets {
					n += t.Sweep()
				}
				if n > 0 {
					logger.Debug("Evicted expired entries", zap.Int("count", n))
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

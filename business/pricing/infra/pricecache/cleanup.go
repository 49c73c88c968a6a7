package pricecache

import (
	"context"
	"sync"
	"time"
)

// CleanupHandle controls one periodic Clean loop.
type CleanupHandle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Stop ends the loop and waits for it to exit. It is safe to call more than
// once.
func (h *CleanupHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// InitCleanup starts a loop that calls Clean every CleanupInterval. Each call
// starts an independent loop; callers normally call it once and keep the
// handle. A non-positive interval returns an already stopped handle.
func (c *PriceCache) InitCleanup() *CleanupHandle {
	h := &CleanupHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if c.cfg.CleanupInterval <= 0 {
		c.logger.Warn(context.Background(), "price cache cleanup disabled", "interval", c.cfg.CleanupInterval.String())
		h.once.Do(func() { close(h.stop) })
		close(h.done)
		return h
	}

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(c.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				n := c.Len()
				c.Clean()
				c.logger.Debug(context.Background(), "price cache cleared", "entries", n)
			}
		}
	}()

	return h
}

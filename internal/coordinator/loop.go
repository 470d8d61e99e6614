package coordinator

import (
	"context"
	"time"

	"ytdlpro/observability"
	"ytdlpro/observability/types"
)

// Start launches the polling loop. It runs until ctx is done or Close is
// called; calling Start again while running is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loopDone != nil || c.closed {
		return
	}

	loopCtx, stop := context.WithCancel(ctx)
	c.stop = stop
	c.loopDone = make(chan struct{})

	go c.run(loopCtx, c.loopDone)
}

// Close stops the loop, waits for in-flight polls and cancels pending
// removals. Records already tracked stay readable.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	stop, done := c.stop, c.loopDone
	for id, t := range c.removals {
		t.Stop()
		delete(c.removals, id)
	}
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	c.polls.Wait()
	return nil
}

func (c *Coordinator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.logger.Info(ctx, "Polling loop started", observability.Fields{
		"interval_ms": c.cfg.PollInterval.Milliseconds(),
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info(context.Background(), "Polling loop stopped", nil)
			return
		case <-ticker.C:
			c.pollAll(ctx)
		}
	}
}

// pollAll polls every tracked job concurrently, each under its own timeout.
// A job whose previous poll is still running is skipped this round.
func (c *Coordinator) pollAll(ctx context.Context) {
	for _, id := range c.jobs.IDs() {
		if !c.claim(id) {
			continue
		}

		c.polls.Add(1)
		go func(id string) {
			defer c.polls.Done()
			defer c.release(id)

			pollCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
			defer cancel()
			pollCtx = context.WithValue(pollCtx, types.JobIDKey, id)

			if err := c.PollOnce(pollCtx, id); err != nil {
				c.logger.Warn(pollCtx, "Status poll failed", observability.Fields{
					"job_id": id,
					"error":  err.Error(),
				})
			}
		}(id)
	}
}

func (c *Coordinator) claim(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

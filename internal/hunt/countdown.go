// Package hunt implements the hunt progression state machine and its countdown.
package hunt

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTickInterval is the wall-clock length of one countdown second.
const DefaultTickInterval = time.Second

// Countdown decrements a second counter on a ticker until it reaches zero.
//
// Every Start and Stop bumps a generation number and each ticking goroutine
// carries the generation it was started with, so a restart can never produce
// two decrements per tick and a stopped countdown can never fire again.
// Callbacks run on the ticking goroutine, never on the caller of Start or Stop,
// and never while the countdown lock is held.
type Countdown struct {
	interval time.Duration
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	running   bool
	gen       uint64
	cancel    context.CancelFunc
}

// NewCountdown creates a stopped countdown. onTick and onExpire may be nil.
func NewCountdown(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	if seconds < 0 {
		panic("hunt: countdown created with negative budget")
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Countdown{
		interval:  interval,
		onTick:    onTick,
		onExpire:  onExpire,
		remaining: seconds,
	}
}

// Start begins ticking. Calling Start on a running countdown restarts the
// ticker and invalidates the previous one. A countdown at zero does not start.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked()
	if c.remaining <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	go c.loop(ctx, c.gen)
}

// Stop halts ticking. No callback from a previous Start fires after Stop returns,
// except one that had already passed its generation check.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

// Reset stops the countdown and sets a new budget.
func (c *Countdown) Reset(seconds int) {
	if seconds < 0 {
		panic("hunt: countdown reset to negative budget")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
	c.remaining = seconds
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether the countdown is ticking.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Countdown) invalidateLocked() {
	c.gen++
	c.running = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Countdown) loop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick applies one decrement for generation gen and reports whether ticking
// should continue.
func (c *Countdown) tick(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen || !c.running {
		c.mu.Unlock()
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	expired := remaining == 0
	if expired {
		c.invalidateLocked()
	}
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(remaining)
	}
	if expired {
		slog.Debug("Countdown expired")
		if c.onExpire != nil {
			c.onExpire()
		}
		return false
	}
	return true
}

package query

import (
	"sync"
	"time"
)

// Composer merges rapid partial edits into a single Params value and emits
// the merged result after a quiet period with no further edits. Timers are
// reset, not stacked: a burst of patches produces exactly one emission
// carrying the last-writer-wins merge.
type Composer struct {
	mu      sync.Mutex
	quiet   time.Duration
	timer   *time.Timer
	current Params
	dirty   bool
	closed  bool
	out     chan Params
}

func NewComposer(initial Params, quiet time.Duration) *Composer {
	return &Composer{
		quiet:   quiet,
		current: initial,
		out:     make(chan Params, 1),
	}
}

// Apply merges a patch and restarts the quiet-period timer.
func (c *Composer) Apply(patch Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.current = c.current.Apply(patch)
	c.dirty = true

	if c.timer == nil {
		c.timer = time.AfterFunc(c.quiet, c.emit)
	} else {
		c.timer.Reset(c.quiet)
	}
}

// Updates delivers at most one merged Params per quiet period. A pending
// undelivered emission is replaced by a newer one, never queued behind it.
func (c *Composer) Updates() <-chan Params {
	return c.out
}

// Current returns the merged params as of now, emitted or not.
func (c *Composer) Current() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Flush emits any pending merge immediately instead of waiting out the
// quiet period.
func (c *Composer) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.emitLocked()
}

// Close stops the timer and closes the updates channel. Patches applied
// after Close are dropped.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	close(c.out)
}

func (c *Composer) emit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked()
}

func (c *Composer) emitLocked() {
	if c.closed || !c.dirty {
		return
	}
	c.dirty = false

	select {
	case <-c.out:
	default:
	}
	c.out <- c.current
}

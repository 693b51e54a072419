package service

import (
	"context"
	"sync"
)

// control implements cooperative pause, resume and stop for one manager.
// Pause is observed at safe points between steps; in-flight requests finish
// normally.
type control struct {
	mu      sync.Mutex
	active  bool
	paused  bool
	resume  chan struct{}
	cancel  context.CancelFunc
	stopped bool
}

// begin marks the manager active and returns the context of the pass. A
// context that is already done yields its cause.
func (c *control) begin(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil, ErrAlreadyRunning
	}
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	passCtx, cancel := context.WithCancel(ctx)
	c.active = true
	c.paused = false
	c.stopped = false
	c.resume = make(chan struct{})
	c.cancel = cancel
	return passCtx, nil
}

func (c *control) end() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.active = false
	c.paused = false
	c.cancel = nil
}

func (c *control) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *control) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *control) wasStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *control) pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || c.paused {
		return false
	}
	c.paused = true
	c.resume = make(chan struct{})
	return true
}

func (c *control) unpause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || !c.paused {
		return false
	}
	c.paused = false
	close(c.resume)
	return true
}

func (c *control) stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return false
	}
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
	return true
}

// checkpoint withholds the next step while paused. onPause runs once when
// the pause takes effect.
func (c *control) checkpoint(ctx context.Context, onPause func()) error {
	c.mu.Lock()
	paused, resume := c.paused, c.resume
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !paused {
		return nil
	}

	if onPause != nil {
		onPause()
	}
	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

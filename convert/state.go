package convert

import "sync"

// Coordinator holds the is_active/cancelled flags that gate a conversion
// run. Rather than a package-level singleton, the front-end constructs
// exactly one Coordinator and threads it through every call: this keeps
// the single-activity-flag, single-cancel-button contract without an
// actual global variable.
type Coordinator struct {
	mu        sync.Mutex
	isActive  bool
	cancelled bool
}

// NewCoordinator returns an idle Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// tryStart marks the coordinator active, returning false if a conversion is
// already in flight (at most one conversion may run at a time).
func (c *Coordinator) tryStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isActive {
		return false
	}
	c.isActive = true
	c.cancelled = false
	return true
}

// finish clears the active flag on completion, success or failure.
func (c *Coordinator) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isActive = false
}

// Cancel sets the shared cancel flag. The next checkpoint in the running
// worker observes it and aborts.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// Cancelled reports whether cancellation has been requested.
func (c *Coordinator) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// IsActive reports whether a conversion is currently in flight.
func (c *Coordinator) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isActive
}

// Package clock provides the simulated scenario clock. All adapters
// filter their datasets against it, so advancing the clock replays the
// disaster timeline.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Clock is a settable scenario clock. It only moves when told to; wall
// time never leaks into the data path.
type Clock struct {
	mu   sync.RWMutex
	now  time.Time
	prev time.Time
}

// New returns a clock fixed at the given instant.
func New(initial time.Time) *Clock {
	return &Clock{now: initial, prev: initial}
}

// Now returns the current scenario time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Previous returns the scenario time before the last Set or Advance.
// Adapters use the (Previous, Now] window to surface only records that
// became visible since the last query.
func (c *Clock) Previous() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prev
}

// Set moves the clock to t. Moving backwards is allowed; the scenario
// operator owns the timeline.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prev = c.now
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) (time.Time, error) {
	if d < 0 {
		return time.Time{}, fmt.Errorf("cannot advance by negative duration %v", d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prev = c.now
	c.now = c.now.Add(d)
	return c.now, nil
}

// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"time"
)

// FakeClock reports a fixed instant until the test moves it. It satisfies
// container.Clock.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFakeClock creates a FakeClock stopped at at.
func NewFakeClock(at time.Time) *FakeClock {
	return &FakeClock{now: at}
}

// WithStep makes every Now call move the clock forward by d after reading
// it, so consecutive readings differ by exactly d.
func (c *FakeClock) WithStep(d time.Duration) *FakeClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = d
	return c
}

// Now returns the clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Advance moves the clock by d; a negative d moves it back.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

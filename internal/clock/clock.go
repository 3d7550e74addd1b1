// SPDX-License-Identifier: MPL-2.0

// Package clock provides the time source used to name output packages.
package clock

import (
	"sync"
	"time"
)

type (
	// Clock abstracts the current time so output names are deterministic in
	// tests. Production code uses Real; tests use Fake.
	Clock interface {
		Now() time.Time
	}

	// Real reads the system clock.
	Real struct{}

	// Fake is a manually controlled clock. Time only moves when Advance or
	// Set is called.
	Fake struct {
		mu      sync.Mutex
		current time.Time
	}
)

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// NewFake creates a Fake set to initial. A zero initial time uses a fixed
// reference time.
func NewFake(initial time.Time) *Fake {
	if initial.IsZero() {
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Fake{current: initial}
}

// Now returns the fake time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the fake time forward by d.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the fake time to t.
func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

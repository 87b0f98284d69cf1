// Package clock provides the time source used to stamp lifecycle events and
// journal entries. Use Real in production and Mock in tests.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using the standard time package.
type Real struct{}

// Now returns the current wall-clock time.
func (Real) Now() time.Time {
	return time.Now()
}

// Mock is a manually driven Clock for tests.
type Mock struct {
	mu      sync.Mutex
	current time.Time
}

// NewMock creates a Mock starting at the given time.
func NewMock(start time.Time) *Mock {
	return &Mock{current: start}
}

// Now returns the mock current time.
func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the mock clock forward by d.
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the mock clock to t.
func (c *Mock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

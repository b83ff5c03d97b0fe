package app

import (
	"sync"
	"time"
)

// monotonicClock never returns the same millisecond twice, so successive
// passes of one wallet get distinct snapshot keys.
type monotonicClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return time.UnixMilli(ms)
}

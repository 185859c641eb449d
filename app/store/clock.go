package store

import "time"

// clock hands out strictly increasing timestamps, even if the wall clock
// steps backwards. Callers must hold the store's write lock.
type clock struct {
	now  func() time.Time
	last time.Time
}

func (c *clock) Now() time.Time {
	t := c.now()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

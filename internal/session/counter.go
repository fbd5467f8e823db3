package session

import "sync/atomic"

// Counter hands out process-unique session ids starting at 1.
type Counter struct {
	n atomic.Int64
}

// Next returns the next id. Concurrent callers never observe the same value.
func (c *Counter) Next() int {
	return int(c.n.Add(1))
}

// Last returns the most recently issued id, or 0 before the first launch.
func (c *Counter) Last() int {
	return int(c.n.Load())
}

package session

import (
	"sync"
	"time"
)

// RequestCounter tracks outbound request timestamps over a trailing one-hour
// window. It is purely observational: counts are reported in diagnostics and
// attached to rate-limit errors.
type RequestCounter struct {
	mu     sync.Mutex
	stamps []time.Time
}

// NewRequestCounter returns an empty counter.
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{}
}

// Add records a request timestamp and prunes entries older than one hour.
func (c *RequestCounter) Add(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stamps = append(c.stamps, t)
	cutoff := t.Add(-time.Hour)
	i := 0
	for i < len(c.stamps) && c.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		c.stamps = append(c.stamps[:0], c.stamps[i:]...)
	}
}

// LastMinute returns the request count over the trailing minute.
func (c *RequestCounter) LastMinute() int {
	return c.countSince(time.Now().Add(-time.Minute))
}

// LastHour returns the request count over the trailing hour.
func (c *RequestCounter) LastHour() int {
	return c.countSince(time.Now().Add(-time.Hour))
}

func (c *RequestCounter) countSince(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i := len(c.stamps) - 1; i >= 0; i-- {
		if c.stamps[i].Before(cutoff) {
			break
		}
		n++
	}
	return n
}

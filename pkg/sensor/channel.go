package sensor

import "sync"

// Channel is a single-slot, latest-value-wins mailbox between the sample
// publisher and the poll handler. The zero value is ready to use.
type Channel struct {
	mu        sync.Mutex
	value     Reading
	published uint64
	consumed  uint64
}

// Publish stores r, replacing any value not yet read.
func (c *Channel) Publish(r Reading) {
	c.mu.Lock()
	c.value = r
	c.published++
	c.mu.Unlock()
}

// TryRead returns the latest reading and true if it was published since the
// previous successful TryRead. It never blocks on the publisher and never
// clears the stored value.
func (c *Channel) TryRead() (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.published == c.consumed {
		return Reading{}, false
	}
	c.consumed = c.published
	return c.value, true
}

// Latest returns the most recent reading regardless of freshness, and false
// if nothing was ever published.
func (c *Channel) Latest() (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.published > 0
}

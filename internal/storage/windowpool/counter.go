package windowpool

import "sync/atomic"

// looseCounter is a statistics counter that accepts losing increments under contention.
// It avoids a read-modify-write instruction on the acquire path while staying race free.
type looseCounter struct {
	v atomic.Int64
}

func (c *looseCounter) inc() {
	c.v.Store(c.v.Load() + 1)
}

func (c *looseCounter) load() int64 {
	return c.v.Load()
}

func (c *looseCounter) reset() {
	c.v.Store(0)
}

package cache

import "sync/atomic"

// Stats is a snapshot of a Cache's counters.
type Stats struct {
	Hits     uint64 // entries reused
	Misses   uint64 // no entry stored
	Stale    uint64 // entry rejected by its policy
	Computes uint64
	Writes   uint64 // successful compute writes and Sets
	Flushes  uint64
	Errors   uint64
}

type counters struct {
	hits, misses, stale, computes, writes, flushes, errors atomic.Uint64
}

// Stats returns the current counters.
func (c *Cache[T]) Stats() Stats {
	return Stats{
		Hits:     c.stats.hits.Load(),
		Misses:   c.stats.misses.Load(),
		Stale:    c.stats.stale.Load(),
		Computes: c.stats.computes.Load(),
		Writes:   c.stats.writes.Load(),
		Flushes:  c.stats.flushes.Load(),
		Errors:   c.stats.errors.Load(),
	}
}

package cache

import (
	"context"
	"time"
)

// Entry is a stored value together with the time it was written.
type Entry[T any] struct {
	Value     T
	Timestamp time.Time
}

// Store holds at most one Entry per Key. Entries are replaced wholesale on
// Write and never mutated in place.
type Store[T any] interface {
	// Lookup returns the entry for key, if any.
	Lookup(ctx context.Context, key Key) (Entry[T], bool, error)
	// Write stores value under key, stamped with the store's current time.
	Write(ctx context.Context, key Key, value T) error
	// DeleteExact removes the entry for key and reports whether one existed.
	DeleteExact(ctx context.Context, key Key) (bool, error)
	// DeleteByPrefix removes every entry whose key has prefix and returns how many were removed.
	DeleteByPrefix(ctx context.Context, prefix Prefix) (int, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)
}

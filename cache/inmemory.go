package cache

import (
	"context"
	"sync"
)

type inMemoryStore[T any] struct {
	entries map[Key]Entry[T]
	mutex   sync.Mutex
	cfg     config
}

var _ Store[int] = (*inMemoryStore[int])(nil)

// NewInMemoryStore returns a map backed Store. It has no capacity bound and
// no background expiry; entries live until they are deleted or cleared.
// Only WithClock is meaningful for a store.
func NewInMemoryStore[T any](opts ...Option) Store[T] {
	return &inMemoryStore[T]{
		entries: make(map[Key]Entry[T]),
		cfg:     applyOptions(opts),
	}
}

func (s *inMemoryStore[T]) Lookup(_ context.Context, key Key) (Entry[T], bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *inMemoryStore[T]) Write(_ context.Context, key Key, value T) error {
	entry := Entry[T]{Value: value, Timestamp: s.cfg.clock()}
	s.mutex.Lock()
	s.entries[key] = entry
	s.mutex.Unlock()
	return nil
}

func (s *inMemoryStore[T]) DeleteExact(_ context.Context, key Key) (bool, error) {
	s.mutex.Lock()
	_, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mutex.Unlock()
	return ok, nil
}

func (s *inMemoryStore[T]) DeleteByPrefix(_ context.Context, prefix Prefix) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var removed int
	for key := range s.entries {
		if key.HasPrefix(prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *inMemoryStore[T]) Clear(_ context.Context) error {
	s.mutex.Lock()
	clear(s.entries)
	s.mutex.Unlock()
	return nil
}

func (s *inMemoryStore[T]) Len(_ context.Context) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries), nil
}

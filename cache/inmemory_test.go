package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustKey(t *testing.T, name string, args ...any) Key {
	t.Helper()
	key, err := EncodeKey(name, args...)
	assert.NoError(t, err)
	return key
}

func TestInMemoryStoreWriteLookup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewInMemoryStore[string](WithClock(clock.Now))

	key := mustKey(t, "k", "a")
	_, found, err := store.Lookup(ctx, key)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, store.Write(ctx, key, "value"))
	entry, found, err := store.Lookup(ctx, key)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", entry.Value)
	assert.Equal(t, clock.Now(), entry.Timestamp)

	// overwrite replaces the whole entry
	clock.Advance(time.Second)
	assert.NoError(t, store.Write(ctx, key, "other"))
	entry, _, _ = store.Lookup(ctx, key)
	assert.Equal(t, "other", entry.Value)
	assert.Equal(t, clock.Now(), entry.Timestamp)

	n, err := store.Len(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInMemoryStoreDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore[int]()

	ka := mustKey(t, "k", "a")
	kb := mustKey(t, "k", "b")
	j := mustKey(t, "j")
	k2 := mustKey(t, "k2", "a")
	for i, key := range []Key{ka, kb, j, k2} {
		assert.NoError(t, store.Write(ctx, key, i))
	}

	removed, err := store.DeleteExact(ctx, ka)
	assert.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.DeleteExact(ctx, ka)
	assert.NoError(t, err)
	assert.False(t, removed)

	assert.NoError(t, store.Write(ctx, ka, 0))
	count, err := store.DeleteByPrefix(ctx, KeyPrefix("k"))
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	_, found, _ := store.Lookup(ctx, j)
	assert.True(t, found)
	_, found, _ = store.Lookup(ctx, k2)
	assert.True(t, found, "k2 shares a string prefix with k but is a different name")

	assert.NoError(t, store.Clear(ctx))
	n, _ := store.Len(ctx)
	assert.Equal(t, 0, n)
}

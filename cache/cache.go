package cache

import (
	"context"
	"strconv"

	"github.com/agentuity/go-memo/logger"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "@agentuity/go-memo/cache"

// Compute produces the value for a call with args. It is invoked on a miss
// or when the policy rejects the stored entry.
type Compute[T any] func(ctx context.Context, args ...any) (T, error)

// Accessor is a Get with name, compute and policy already bound.
type Accessor[T any] func(ctx context.Context, args ...any) (T, error)

// Cache memoizes values of type T per name and argument list.
type Cache[T any] struct {
	store  Store[T]
	cfg    config
	logger logger.Logger
	tracer trace.Tracer
	group  *singleflight.Group
	stats  counters
}

// New returns a Cache backed by an in-memory Store.
func New[T any](opts ...Option) *Cache[T] {
	return NewWithStore(NewInMemoryStore[T](opts...), opts...)
}

// NewWithStore returns a Cache backed by store.
func NewWithStore[T any](store Store[T], opts ...Option) *Cache[T] {
	cfg := applyOptions(opts)
	c := &Cache[T]{
		store:  store,
		cfg:    cfg,
		logger: cfg.logger.WithPrefix("[cache]").With(map[string]interface{}{"cache_id": cfg.id}),
		tracer: cfg.tracerProvider.Tracer(tracerName),
	}
	if cfg.singleFlight {
		c.group = &singleflight.Group{}
	}
	return c
}

// Store returns the underlying store.
func (c *Cache[T]) Store() Store[T] {
	return c.store
}

// Get returns the value stored for name and args if policy accepts it,
// otherwise it calls compute, stores the result and returns what the store
// then holds. Errors from compute, the policy or key encoding are returned
// and leave the store as it was.
func (c *Cache[T]) Get(ctx context.Context, name string, compute Compute[T], policy Policy[T], args ...any) (T, error) {
	var zero T
	key, err := EncodeKey(name, args...)
	if err != nil {
		c.stats.errors.Add(1)
		return zero, err
	}
	entry, found, err := c.store.Lookup(ctx, key)
	if err != nil {
		c.stats.errors.Add(1)
		return zero, errors.Wrapf(err, "cache: lookup %s", key)
	}
	if found {
		ok, err := policy.valid(c.cfg.clock(), entry, args)
		if err != nil {
			c.stats.errors.Add(1)
			return zero, errors.Wrapf(err, "cache: validity check for %s", key)
		}
		if ok {
			c.stats.hits.Add(1)
			if c.logger.IsTraceEnabled() {
				c.logger.Trace("hit %s", key)
			}
			return entry.Value, nil
		}
		c.stats.stale.Add(1)
		c.logger.Debug("stale %s (policy %s)", key, policy)
	} else {
		c.stats.misses.Add(1)
		c.logger.Debug("miss %s", key)
	}

	value, err := c.refresh(ctx, key, compute, args)
	if err != nil {
		c.stats.errors.Add(1)
		return zero, err
	}

	// the store is the source of truth if another write raced this one
	entry, found, err = c.store.Lookup(ctx, key)
	if err != nil {
		c.stats.errors.Add(1)
		return zero, errors.Wrapf(err, "cache: lookup %s", key)
	}
	if !found {
		// flushed between write and read
		return value, nil
	}
	return entry.Value, nil
}

func (c *Cache[T]) refresh(ctx context.Context, key Key, compute Compute[T], args []any) (T, error) {
	if c.group == nil {
		return c.computeAndWrite(ctx, key, compute, args)
	}
	v, err, shared := c.group.Do(string(key), func() (any, error) {
		return c.computeAndWrite(ctx, key, compute, args)
	})
	if shared {
		c.logger.Trace("shared compute %s", key)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := v.(T)
	return value, nil
}

func (c *Cache[T]) computeAndWrite(ctx context.Context, key Key, compute Compute[T], args []any) (T, error) {
	ctx, span := c.tracer.Start(ctx, "cache.compute", trace.WithAttributes(
		attribute.String("cache.name", key.Name()),
		attribute.String("cache.key_hash", strconv.FormatUint(key.Hash(), 16)),
		attribute.Int("cache.args", len(args)),
	))
	defer span.End()

	c.stats.computes.Add(1)
	value, err := compute(ctx, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("compute %s failed: %s", key, err)
		var zero T
		return zero, errors.Wrapf(err, "cache: compute %s", key)
	}
	if err := c.store.Write(ctx, key, value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, errors.Wrapf(err, "cache: write %s", key)
	}
	c.stats.writes.Add(1)
	return value, nil
}

// Set stores value for name and args unconditionally, with a fresh timestamp.
func (c *Cache[T]) Set(ctx context.Context, name string, value T, args ...any) error {
	key, err := EncodeKey(name, args...)
	if err != nil {
		return err
	}
	if err := c.store.Write(ctx, key, value); err != nil {
		return errors.Wrapf(err, "cache: write %s", key)
	}
	c.stats.writes.Add(1)
	c.logger.Debug("set %s", key)
	return nil
}

// Peek returns the stored entry for name and args without consulting any
// policy or computing anything.
func (c *Cache[T]) Peek(ctx context.Context, name string, args ...any) (Entry[T], bool, error) {
	key, err := EncodeKey(name, args...)
	if err != nil {
		return Entry[T]{}, false, err
	}
	return c.store.Lookup(ctx, key)
}

// Bind returns an Accessor that forwards to Get with name, compute and
// policy fixed. Accessors hold no state of their own; entries are shared
// with Get and with any other accessor bound to the same name.
func (c *Cache[T]) Bind(name string, compute Compute[T], policy Policy[T]) Accessor[T] {
	return func(ctx context.Context, args ...any) (T, error) {
		return c.Get(ctx, name, compute, policy, args...)
	}
}

// Flush removes every entry.
func (c *Cache[T]) Flush(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "cache: clear")
	}
	c.stats.flushes.Add(1)
	c.logger.Debug("flushed all entries")
	return nil
}

// FlushName removes the entries of every argument combination of name.
func (c *Cache[T]) FlushName(ctx context.Context, name string) error {
	removed, err := c.store.DeleteByPrefix(ctx, KeyPrefix(name))
	if err != nil {
		return errors.Wrapf(err, "cache: flush %q", name)
	}
	c.stats.flushes.Add(1)
	c.logger.Debug("flushed %d entries of %q", removed, name)
	return nil
}

// FlushEntry removes the single entry for name and args. Calling it with no
// args removes the entry stored for the empty argument list, not every entry
// of name; use FlushName for that.
func (c *Cache[T]) FlushEntry(ctx context.Context, name string, args ...any) error {
	key, err := EncodeKey(name, args...)
	if err != nil {
		return err
	}
	if _, err := c.store.DeleteExact(ctx, key); err != nil {
		return errors.Wrapf(err, "cache: flush %s", key)
	}
	c.stats.flushes.Add(1)
	c.logger.Debug("flushed %s", key)
	return nil
}

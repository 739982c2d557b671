// Package cache memoizes the results of computations keyed by a name and an
// ordered argument list.
//
// # Get
//
// [Cache.Get] is the get-or-compute operation:
//
//	c := cache.New[User]()
//	user, err := c.Get(ctx, "user", loadUser, cache.TimeToLive[User](time.Minute), id)
//
// The key is derived from the name and the arguments with [EncodeKey]. If the
// store holds an entry for the key and the policy accepts it, the stored value
// is returned. Otherwise the compute function is called with the same
// arguments, its result is written to the store, and the value the store then
// holds is returned.
//
// A failing compute (or a failing predicate) returns its error and writes
// nothing. An entry that was judged stale is left in place by a failed
// recompute; the next Get with the same policy will try again. The cache never
// retries on its own.
//
// # Policies
//
// A [Policy] decides whether an existing entry may be reused:
//
//   - [Always] reuses the entry for as long as it is stored. This is also the zero value.
//   - [TimeToLive] reuses it while it is younger than the duration. An entry exactly as old as the duration is stale.
//   - [Predicate] calls a function with the entry and the call arguments.
//
// [ParseTTL] builds a policy from strings such as "250ms" or "1d".
//
// # Keys
//
// Keys are the quoted name, a ':' and a msgpack encoding of the arguments
// produced by an explicit traversal: maps are sorted by the encoding of their
// keys, structs are walked in field declaration order, pointers are followed.
// The result never depends on map iteration order. Arguments that cannot be
// encoded deterministically (funcs, channels, cycles, structs with unexported
// fields) fail with [ErrNotEncodable]; types can opt in by implementing [Keyer].
//
// # Bound accessors
//
// [Cache.Bind] fixes the name, compute function and policy and returns an
// [Accessor] taking only the arguments. Bound accessors carry no state; they
// read and write the same entries as Get.
//
// # Flushing
//
// [Cache.Flush] clears everything, [Cache.FlushName] removes every argument
// combination of one name, and [Cache.FlushEntry] removes a single entry.
//
// # Concurrency
//
// The in-memory [Store] is safe for concurrent use, but by default concurrent
// misses of the same key each run compute and the last write wins. Pass
// [WithSingleFlight] to have concurrent misses share one compute. The cache
// does not bound how long a compute runs; a compute returning a handle to
// pending work (a channel, a future) has that handle cached.
package cache

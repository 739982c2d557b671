package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
)

// PolicyKind tags the variant held by a Policy.
type PolicyKind int

const (
	// PolicyAlways reuses any existing entry.
	PolicyAlways PolicyKind = iota
	// PolicyTimeToLive reuses an entry younger than its duration.
	PolicyTimeToLive
	// PolicyPredicate asks a caller supplied function.
	PolicyPredicate
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyAlways:
		return "always"
	case PolicyTimeToLive:
		return "ttl"
	case PolicyPredicate:
		return "predicate"
	}
	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

// PredicateFunc decides whether entry may be reused for a call with args.
// A non-nil error is returned to the caller of Get and nothing is written.
type PredicateFunc[T any] func(entry Entry[T], args []any) (bool, error)

// Policy decides whether an existing entry may be reused. The zero value is
// equivalent to Always.
type Policy[T any] struct {
	kind      PolicyKind
	ttl       time.Duration
	predicate PredicateFunc[T]
}

// Always reuses an entry for as long as it is stored.
func Always[T any]() Policy[T] {
	return Policy[T]{kind: PolicyAlways}
}

// TimeToLive reuses an entry while now - entry.Timestamp < d. An entry
// exactly d old is expired, and a d <= 0 recomputes on every call.
func TimeToLive[T any](d time.Duration) Policy[T] {
	return Policy[T]{kind: PolicyTimeToLive, ttl: d}
}

// Predicate reuses an entry when fn returns true. A nil fn behaves like Always.
func Predicate[T any](fn PredicateFunc[T]) Policy[T] {
	return Policy[T]{kind: PolicyPredicate, predicate: fn}
}

// ParseTTL parses a duration such as "100ms", "5m" or "1d12h" into a
// TimeToLive policy. An empty string, "always" or "none" yields Always.
func ParseTTL[T any](s string) (Policy[T], error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always", "none":
		return Always[T](), nil
	}
	d, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return Policy[T]{}, errors.Wrapf(err, "cache: invalid ttl %q", s)
	}
	return TimeToLive[T](d), nil
}

// Kind returns the variant of the policy.
func (p Policy[T]) Kind() PolicyKind {
	return p.kind
}

// TTL returns the duration of a TimeToLive policy and zero otherwise.
func (p Policy[T]) TTL() time.Duration {
	if p.kind != PolicyTimeToLive {
		return 0
	}
	return p.ttl
}

func (p Policy[T]) String() string {
	if p.kind == PolicyTimeToLive {
		return "ttl(" + p.ttl.String() + ")"
	}
	return p.kind.String()
}

// valid reports whether entry may be reused at now. Unknown kinds fall back
// to Always rather than forcing a recompute.
func (p Policy[T]) valid(now time.Time, entry Entry[T], args []any) (bool, error) {
	switch p.kind {
	case PolicyTimeToLive:
		return now.Sub(entry.Timestamp) < p.ttl, nil
	case PolicyPredicate:
		if p.predicate == nil {
			return true, nil
		}
		return p.predicate(entry, args)
	}
	return true, nil
}

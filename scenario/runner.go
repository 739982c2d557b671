package scenario

import (
	"context"
	"fmt"
	"io"

	"github.com/agentuity/go-memo/cache"
	"github.com/agentuity/go-memo/logger"
	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
)

// ErrExpectation is returned when a get step does not produce what the
// script expects.
var ErrExpectation = errors.New("scenario: expectation failed")

// errScripted is what a get step with fail: true computes.
var errScripted = errors.New("scripted failure")

// Runner replays scripts against a string cache. The compute function of a
// get step returns "<name>#<n>", n counting the computes of that name.
type Runner struct {
	cache  *cache.Cache[string]
	clock  Clock
	out    io.Writer
	logger logger.Logger
	counts map[string]int
}

// NewRunner returns a Runner writing one line per step to out.
func NewRunner(out io.Writer, clock Clock, log logger.Logger, opts ...cache.Option) *Runner {
	opts = append([]cache.Option{cache.WithClock(clock.Now), cache.WithLogger(log)}, opts...)
	return &Runner{
		cache:  cache.New[string](opts...),
		clock:  clock,
		out:    out,
		logger: log.WithPrefix("[scenario]"),
		counts: make(map[string]int),
	}
}

// Cache returns the cache the runner operates on.
func (r *Runner) Cache() *cache.Cache[string] {
	return r.cache
}

// Run executes the steps of s in order and stops at the first error.
func (r *Runner) Run(ctx context.Context, s *Script) error {
	policy, err := cache.ParseTTL[string](s.TTL)
	if err != nil {
		return err
	}
	if s.Name != "" {
		r.logger.Info("running %q (%d steps)", s.Name, len(s.Steps))
	}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(ctx, step, policy); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i+1, step.Op)
		}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, step Step, policy cache.Policy[string]) error {
	switch step.Op {
	case "get":
		return r.get(ctx, step, policy)
	case "set":
		if err := r.cache.Set(ctx, step.Name, step.Value, step.Args...); err != nil {
			return err
		}
		r.printf("set %s %v = %s", step.Name, step.Args, step.Value)
	case "flush":
		return r.flush(ctx, step)
	case "sleep":
		d, err := str2duration.ParseDuration(step.Duration)
		if err != nil {
			return errors.Wrapf(err, "duration %q", step.Duration)
		}
		r.clock.Sleep(d)
		r.printf("sleep %s", d)
	default:
		return errors.Newf("unknown op %q", step.Op)
	}
	return nil
}

func (r *Runner) get(ctx context.Context, step Step, policy cache.Policy[string]) error {
	if step.TTL != nil {
		p, err := cache.ParseTTL[string](*step.TTL)
		if err != nil {
			return err
		}
		policy = p
	}
	before := r.cache.Stats().Computes
	val, err := r.cache.Get(ctx, step.Name, r.compute(step), policy, step.Args...)
	if err != nil {
		if step.ExpectError {
			r.printf("get %s %v -> error: %s", step.Name, step.Args, err)
			return nil
		}
		return err
	}
	if step.ExpectError {
		return errors.Wrapf(ErrExpectation, "get %s: expected an error, got %q", step.Name, val)
	}
	source := "cached"
	if r.cache.Stats().Computes != before {
		source = "computed"
	}
	r.printf("get %s %v -> %s (%s)", step.Name, step.Args, val, source)
	if step.Expect != nil && *step.Expect != val {
		return errors.Wrapf(ErrExpectation, "get %s %v: expected %q, got %q", step.Name, step.Args, *step.Expect, val)
	}
	return nil
}

func (r *Runner) compute(step Step) cache.Compute[string] {
	return func(context.Context, ...any) (string, error) {
		if step.Fail {
			return "", errScripted
		}
		r.counts[step.Name]++
		return fmt.Sprintf("%s#%d", step.Name, r.counts[step.Name]), nil
	}
}

func (r *Runner) flush(ctx context.Context, step Step) error {
	switch {
	case step.All || step.Name == "":
		if err := r.cache.Flush(ctx); err != nil {
			return err
		}
		r.printf("flush all")
	case step.Exact || len(step.Args) > 0:
		if err := r.cache.FlushEntry(ctx, step.Name, step.Args...); err != nil {
			return err
		}
		r.printf("flush %s %v", step.Name, step.Args)
	default:
		if err := r.cache.FlushName(ctx, step.Name); err != nil {
			return err
		}
		r.printf("flush %s", step.Name)
	}
	return nil
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

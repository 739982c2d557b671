package cache

import (
	"time"

	"github.com/agentuity/go-memo/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// config holds the resolved configuration for a Cache or Store.
type config struct {
	id             string
	clock          func() time.Time
	logger         logger.Logger
	tracerProvider trace.TracerProvider
	singleFlight   bool
}

// Option configures a Cache or Store.
type Option func(*config)

func defaultConfig() config {
	return config{
		clock: time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewConsoleLogger(logger.LevelNone)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	return cfg
}

// WithClock sets the time source used to stamp entries and to evaluate
// TimeToLive policies. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *config) { c.clock = clock }
}

// WithLogger sets the logger. Defaults to a console logger with logging disabled.
func WithLogger(log logger.Logger) Option {
	return func(c *config) { c.logger = log }
}

// WithTracerProvider sets the provider for compute spans. Defaults to the
// global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithID sets the instance id reported as cache_id in logs. Defaults to a random uuid.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithSingleFlight coalesces concurrent computes of the same key so that
// only one runs and the others wait for its result. Without it concurrent
// misses each compute and the last write wins.
func WithSingleFlight() Option {
	return func(c *config) { c.singleFlight = true }
}

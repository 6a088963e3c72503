package gateway

import (
	"log/slog"
	"time"

	"github.com/aura-edu/aura/pkg/config"
	"github.com/aura-edu/aura/pkg/models"
)

// Defaults for a Gateway built without options.
const (
	DefaultMaxAttempts      = 3
	DefaultBaseBackoff      = 500 * time.Millisecond
	DefaultCacheTTL         = 24 * time.Hour
	DefaultCircuitThreshold = 5
	DefaultCircuitCooldown  = 60 * time.Second
	DefaultCallTimeout      = 30 * time.Second

	// minBaseBackoff floors the configured base delay.
	minBaseBackoff = 100 * time.Millisecond
	// maxJitter bounds the random delay added to every backoff.
	maxJitter = 100 * time.Millisecond
)

// Observer receives one event per Generate call. Implementations must not
// block; they are called on the request path.
type Observer interface {
	Observe(ev models.CallEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev models.CallEvent)

// Observe calls f.
func (f ObserverFunc) Observe(ev models.CallEvent) { f(ev) }

// Option configures a Gateway.
type Option func(*Gateway)

// WithMaxAttempts sets the retry ceiling per call. Values below 1 become 1.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		g.maxAttempts = n
	}
}

// WithBaseBackoff sets the base of the exponential backoff. Values below
// 100ms are raised to 100ms.
func WithBaseBackoff(d time.Duration) Option {
	return func(g *Gateway) {
		g.baseBackoff = d
	}
}

// WithCacheTTL sets the freshness window of cached responses.
func WithCacheTTL(d time.Duration) Option {
	return func(g *Gateway) {
		g.cacheTTL = d
	}
}

// WithCircuitThreshold sets how many consecutive failed calls open the circuit.
func WithCircuitThreshold(n int) Option {
	return func(g *Gateway) {
		g.circuitThreshold = n
	}
}

// WithCircuitCooldown sets how long the circuit stays open.
func WithCircuitCooldown(d time.Duration) Option {
	return func(g *Gateway) {
		g.circuitCooldown = d
	}
}

// WithCallTimeout bounds every single upstream attempt. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.callTimeout = d
	}
}

// WithReadThrough controls whether a fresh cache entry is served before
// calling upstream. When disabled the cache is only a fallback.
func WithReadThrough(enabled bool) Option {
	return func(g *Gateway) {
		g.readThrough = enabled
	}
}

// WithObserver registers a per-call event hook.
func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		g.observer = o
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// FromConfig converts the gateway configuration section to options.
func FromConfig(cfg config.GatewayConfig) []Option {
	return []Option{
		WithMaxAttempts(cfg.MaxAttempts),
		WithBaseBackoff(cfg.BaseBackoff),
		WithCacheTTL(cfg.CacheTTL),
		WithCircuitThreshold(cfg.CircuitThreshold),
		WithCircuitCooldown(cfg.CircuitCooldown),
		WithCallTimeout(cfg.CallTimeout),
		WithReadThrough(cfg.ReadThrough),
	}
}

// Package gateway wraps an upstream text-generation client with a
// content-addressed response cache, bounded retries with exponential backoff
// and jitter, and a failure-counting circuit breaker.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/aura-edu/aura/pkg/breaker"
	"github.com/aura-edu/aura/pkg/cache/memory"
	"github.com/aura-edu/aura/pkg/models"
	"github.com/aura-edu/aura/pkg/upstream"
)

// Gateway is the resilient entry point for text generation. A single Gateway
// is meant to be shared by all callers in a process.
type Gateway struct {
	client  upstream.Client
	cache   *memory.Cache
	breaker *breaker.Breaker

	maxAttempts      int
	baseBackoff      time.Duration
	cacheTTL         time.Duration
	circuitThreshold int
	circuitCooldown  time.Duration
	callTimeout      time.Duration
	readThrough      bool

	observer Observer
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	jitter   func() time.Duration
}

// New creates a Gateway around client.
func New(client upstream.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client:           client,
		maxAttempts:      DefaultMaxAttempts,
		baseBackoff:      DefaultBaseBackoff,
		cacheTTL:         DefaultCacheTTL,
		circuitThreshold: DefaultCircuitThreshold,
		circuitCooldown:  DefaultCircuitCooldown,
		callTimeout:      DefaultCallTimeout,
		readThrough:      true,
		now:              time.Now,
		sleep:            sleepContext,
		jitter:           randomJitter,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.maxAttempts < 1 {
		g.maxAttempts = 1
	}
	if g.baseBackoff < minBaseBackoff {
		g.baseBackoff = minBaseBackoff
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("component", "gateway")
	g.cache = memory.New(g.cacheTTL, g.now)
	g.breaker = breaker.New(g.circuitThreshold, g.circuitCooldown)
	return g
}

// Result describes how a call was served.
type Result struct {
	Text     string
	Outcome  models.Outcome
	Attempts int
}

// Generate returns generated text for prompt using model.
//
// Failures are reported as *Error: KindServiceUnavailable when the circuit
// is open and nothing fresh is cached, KindUpstreamUnavailable when the
// attempts were spent, KindCanceled when ctx ended first.
func (g *Gateway) Generate(ctx context.Context, model, prompt string) (string, error) {
	res, err := g.Call(ctx, model, prompt)
	return res.Text, err
}

// Call is Generate with the outcome and attempt count attached.
func (g *Gateway) Call(ctx context.Context, model, prompt string) (Result, error) {
	start := g.now()
	fp := memory.Fingerprint(model, prompt)
	ev := models.CallEvent{Fingerprint: fp, Model: model}

	if g.readThrough {
		if text, ok := g.cache.Get(fp); ok {
			g.emit(&ev, start, models.OutcomeCacheHit, nil)
			return result(ev, text), nil
		}
	}

	if g.breaker.IsOpen(g.now()) {
		if text, ok := g.cache.Get(fp); ok {
			g.logger.Warn("circuit open, serving cached response", "model", model, "fingerprint", fp[:12])
			g.emit(&ev, start, models.OutcomeCircuitCache, nil)
			return result(ev, text), nil
		}
		err := &Error{Kind: KindServiceUnavailable}
		g.emit(&ev, start, models.OutcomeServiceUnavailable, err)
		return result(ev, ""), err
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		ev.Attempts = attempt

		if err := ctx.Err(); err != nil {
			return g.canceled(&ev, start, err)
		}

		text, err := g.callOnce(ctx, model, prompt)
		if err == nil {
			g.cache.Put(fp, model, text)
			g.breaker.RecordSuccess()
			g.emit(&ev, start, models.OutcomeSuccess, nil)
			return result(ev, text), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return g.canceled(&ev, start, ctxErr)
		}

		lastErr = err
		transient := upstream.IsTransient(err)
		g.logger.Warn("upstream attempt failed",
			"model", model,
			"attempt", attempt,
			"max_attempts", g.maxAttempts,
			"kind", upstream.KindOf(err).String(),
			"transient", transient,
			"error", err,
		)
		if !transient || attempt == g.maxAttempts {
			break
		}

		if err := g.sleep(ctx, g.backoff(attempt)); err != nil {
			return g.canceled(&ev, start, err)
		}
	}

	g.logger.Error("upstream attempts exhausted", "model", model, "attempts", ev.Attempts, "error", lastErr)

	if opened, until := g.breaker.RecordFailure(g.now()); opened {
		ev.CircuitOpened = true
		g.logger.Warn("circuit breaker opened", "cooldown", g.circuitCooldown, "open_until", until)
	}

	if text, ok := g.cache.Get(fp); ok {
		g.logger.Warn("serving cached response after upstream failure", "model", model, "fingerprint", fp[:12])
		g.emit(&ev, start, models.OutcomeStaleFallback, nil)
		return result(ev, text), nil
	}

	err := &Error{Kind: KindUpstreamUnavailable, Attempts: ev.Attempts, Cause: lastErr}
	g.emit(&ev, start, models.OutcomeUpstreamUnavailable, err)
	return result(ev, ""), err
}

// Status reports cache and circuit state.
func (g *Gateway) Status() models.GatewayStatus {
	return models.GatewayStatus{
		Cache:   g.cache.Stats(),
		Circuit: g.breaker.Status(g.now()),
	}
}

// callOnce performs one upstream attempt bounded by the call timeout. An
// attempt that runs out its own deadline is reported as a transient timeout.
func (g *Gateway) callOnce(ctx context.Context, model, prompt string) (string, error) {
	if g.callTimeout <= 0 {
		return g.client.Generate(ctx, model, prompt)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	text, err := g.client.Generate(callCtx, model, prompt)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		if upstream.KindOf(err) != upstream.KindTimeout {
			err = upstream.NewError(upstream.KindTimeout, 0, "attempt exceeded "+g.callTimeout.String(), err)
		}
	}
	return text, err
}

// backoff returns baseBackoff * 2^(attempt-1) plus jitter.
func (g *Gateway) backoff(attempt int) time.Duration {
	return g.baseBackoff<<(attempt-1) + g.jitter()
}

func (g *Gateway) canceled(ev *models.CallEvent, start time.Time, cause error) (Result, error) {
	err := &Error{Kind: KindCanceled, Attempts: ev.Attempts, Cause: cause}
	g.emit(ev, start, models.OutcomeCanceled, err)
	return result(*ev, ""), err
}

func (g *Gateway) emit(ev *models.CallEvent, start time.Time, outcome models.Outcome, err error) {
	ev.Outcome = outcome
	ev.CreatedAt = g.now()
	ev.Latency = ev.CreatedAt.Sub(start)
	if err != nil {
		ev.Error = err.Error()
	}
	if g.observer != nil {
		g.observer.Observe(*ev)
	}
}

func result(ev models.CallEvent, text string) Result {
	return Result{Text: text, Outcome: ev.Outcome, Attempts: ev.Attempts}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(maxJitter)))
}

package models

import "time"

// Outcome describes how a gateway call was resolved.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeCacheHit            Outcome = "cache_hit"
	OutcomeCircuitCache        Outcome = "circuit_cache"
	OutcomeStaleFallback       Outcome = "stale_fallback"
	OutcomeServiceUnavailable  Outcome = "service_unavailable"
	OutcomeUpstreamUnavailable Outcome = "upstream_unavailable"
	OutcomeCanceled            Outcome = "canceled"
)

// Degraded reports whether the caller received an answer that did not come
// from a fresh upstream call made for this request.
func (o Outcome) Degraded() bool {
	return o == OutcomeCircuitCache || o == OutcomeStaleFallback
}

// CallEvent is emitted once per gateway call.
type CallEvent struct {
	Fingerprint   string        `json:"fingerprint"`
	Model         string        `json:"model"`
	Outcome       Outcome       `json:"outcome"`
	Attempts      int           `json:"attempts"`
	Latency       time.Duration `json:"latency"`
	Error         string        `json:"error,omitempty"`
	CircuitOpened bool          `json:"circuit_opened,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CircuitStatus is a point-in-time view of the circuit breaker.
type CircuitStatus struct {
	Open      bool      `json:"open"`
	Failures  int       `json:"failures"`
	OpenUntil time.Time `json:"open_until,omitempty"`
}

// GatewayStatus aggregates cache and circuit state for ops visibility.
type GatewayStatus struct {
	Cache   CacheStats    `json:"cache"`
	Circuit CircuitStatus `json:"circuit"`
}

// OutcomeSummary aggregates recorded calls by model and outcome.
type OutcomeSummary struct {
	Model         string  `json:"model"`
	Outcome       Outcome `json:"outcome"`
	Calls         int     `json:"calls"`
	TotalAttempts int     `json:"total_attempts"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	CircuitOpens  int     `json:"circuit_opens"`
}

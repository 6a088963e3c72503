// Package upstream defines the text-generation client the gateway wraps and
// the closed set of error kinds it reports.
package upstream

import (
	"context"
	"errors"
	"fmt"
)

// Client generates text for a prompt with the given model.
type Client interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, model, prompt string) (string, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, model, prompt string) (string, error) {
	return f(ctx, model, prompt)
}

// Kind classifies an upstream failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnavailable is an overloaded or temporarily unavailable service (503).
	KindUnavailable
	// KindTimeout is an attempt that exceeded its deadline.
	KindTimeout
	// KindNetwork is a connection-level failure before any response.
	KindNetwork
	// KindServer is any other 5xx response.
	KindServer
	// KindRateLimited is a quota or rate-limit rejection (429).
	KindRateLimited
	// KindBadRequest is a malformed, unsupported or blocked request.
	KindBadRequest
	// KindAuth is an authentication or permission failure.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindRateLimited:
		return "rate_limited"
	case KindBadRequest:
		return "bad_request"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Transient reports whether errors of this kind are expected to clear on retry.
func (k Kind) Transient() bool {
	switch k {
	case KindUnavailable, KindTimeout, KindNetwork, KindServer:
		return true
	default:
		return false
	}
}

// Error is a classified upstream failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s (%d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("upstream %s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: message, Err: cause}
}

// KindOf returns the kind of err. A bare context.DeadlineExceeded counts as a
// timeout; anything unclassified is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return KindOf(err).Transient()
}

package gateway

import (
	"errors"
	"fmt"
)

// Kind identifies why a gateway call failed.
type Kind int

const (
	// KindServiceUnavailable means the circuit was open and no fresh cache
	// entry existed; upstream was never tried.
	KindServiceUnavailable Kind = iota + 1
	// KindUpstreamUnavailable means upstream was tried and every allowed
	// attempt failed (or a non-transient error ended the attempts).
	KindUpstreamUnavailable
	// KindCanceled means the caller's context ended before a result.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (k Kind) message() string {
	switch k {
	case KindServiceUnavailable:
		return "service is in temporary recovery mode"
	case KindUpstreamUnavailable:
		return "the AI service is temporarily overloaded; retry later"
	case KindCanceled:
		return "generation canceled"
	default:
		return "gateway error"
	}
}

// Error is returned by Generate for every terminal failure.
type Error struct {
	Kind     Kind
	Attempts int
	Cause    error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind.message(), e.Cause)
	}
	return e.Kind.message()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Message is the caller-safe description, without upstream diagnostics.
func (e *Error) Message() string {
	return e.Kind.message()
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind == kind
	}
	return false
}

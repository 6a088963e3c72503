package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", NewError(KindUnavailable, 503, "model is overloaded", nil), true},
		{"timeout", NewError(KindTimeout, 0, "deadline", nil), true},
		{"network", NewError(KindNetwork, 0, "connection reset", nil), true},
		{"server", NewError(KindServer, 500, "internal", nil), true},
		{"rate limited", NewError(KindRateLimited, 429, "quota", nil), false},
		{"bad request", NewError(KindBadRequest, 400, "invalid", nil), false},
		{"auth", NewError(KindAuth, 401, "bad key", nil), false},
		{"wrapped", fmt.Errorf("call: %w", NewError(KindUnavailable, 503, "", nil)), true},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewError(KindUnavailable, 503, "overloaded", nil)
	assert.Equal(t, "upstream unavailable (503): overloaded", err.Error())

	cause := errors.New("dial tcp: connection refused")
	err = NewError(KindNetwork, 0, "", cause)
	assert.Equal(t, "upstream network: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

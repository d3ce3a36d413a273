package gateway

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind classifies gateway failures. Values double as application error codes.
type Kind string

const (
	KindCircuitOpen     Kind = "circuit_open"
	KindProviderTimeout Kind = "provider_timeout"
	KindRateLimited     Kind = "rate_limited"
	KindProviderError   Kind = "provider_error"
)

var (
	// ErrCircuitOpen is wrapped by errors returned while the cooldown is active.
	ErrCircuitOpen = errors.New("provider cooldown active")
	// ErrTimeout is wrapped when the provider did not answer in time.
	ErrTimeout = errors.New("provider call timed out")
)

// Error is the failure type returned by Gateway.Call.
type Error struct {
	Kind       Kind
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s, retry after %ds", msg, RetryAfterSeconds(e.RetryAfter))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the gateway kind from err, or an empty kind.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// RetryAfter extracts the retry guidance carried by err.
func RetryAfter(err error) time.Duration {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.RetryAfter
	}
	return 0
}

// RetryAfterSeconds rounds d up to whole seconds.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

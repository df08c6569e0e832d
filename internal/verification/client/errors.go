package client

import (
	"fmt"
)

// Kind classifies a transport failure.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindConnectionRefused Kind = "connection_refused"
	KindNonSuccessStatus  Kind = "non_success_status"
	KindCancelled         Kind = "cancelled"
	KindCircuitOpen       Kind = "circuit_open"
	KindNetwork           Kind = "network"
	KindEncoding          Kind = "encoding"
	// KindResponseTooLarge means the body exceeded the read limit and was discarded.
	KindResponseTooLarge Kind = "response_too_large"
)

// TransportError describes why a verification call did not yield a 200.
//
// For KindNonSuccessStatus, Send still returns the Response so the body can be
// inspected.
type TransportError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Kind == KindNonSuccessStatus:
		return fmt.Sprintf("verification service returned status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("verification request failed [%s]: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("verification request failed [%s]", e.Kind)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transient reports whether re-sending the same payload may succeed: timeouts,
// refused connections, other network errors and 5xx responses.
func (e *TransportError) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindConnectionRefused, KindNetwork:
		return true
	case KindNonSuccessStatus:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}

// upstreamFault reports whether the failure counts against the circuit breaker.
func (e *TransportError) upstreamFault() bool {
	return e.Transient()
}

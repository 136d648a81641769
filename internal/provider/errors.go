package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransientError marks a provider failure worth retrying: rate limits,
// 5xx responses, timeouts, and connection-level faults.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient provider error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a provider failure that retrying cannot fix:
// bad credentials, malformed requests, unknown models. It is kept distinct
// so credential misconfiguration is never mistaken for rate limiting.
type PermanentError struct {
	Status int
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("permanent provider error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("permanent provider error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// MalformedResponseError reports a reply that arrived but failed schema
// validation. Path points at the offending field ("$" for the whole body).
type MalformedResponseError struct {
	Path   string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed evaluator response at %s: %s", e.Path, e.Reason)
}

// transientSubstrings classify transport errors whose concrete type is
// unavailable. Matching is case-insensitive.
var transientSubstrings = []string{
	"rate limit",
	"429",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"no such host",
	"temporarily unavailable",
	"server overloaded",
}

// IsTransient reports whether the retry layer may try err again.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		// A schema-invalid reply gets its single reformat retry inside the
		// provider call; the outer retry loop must not hammer it again.
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// classifyStatus wraps an HTTP-level provider failure into the taxonomy.
func classifyStatus(status int, err error) error {
	switch {
	case status == 429 || status >= 500:
		return &TransientError{Status: status, Err: err}
	default:
		return &PermanentError{Status: status, Err: err}
	}
}

// classifyTransport wraps a connection-level failure (no HTTP status).
func classifyTransport(err error) error {
	if IsTransient(err) {
		return &TransientError{Err: err}
	}
	return &PermanentError{Err: err}
}

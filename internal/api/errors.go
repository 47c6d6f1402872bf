package api

import (
	"errors"
	"fmt"
)

// ErrNoCredential indicates the client was constructed without a usable
// credential. Signing cannot proceed, so this is fatal to the caller — the
// condition is not transient and is never retried.
var ErrNoCredential = errors.New("no API credential configured")

// TransportError wraps a network-level failure: connection refused, timeout,
// DNS resolution. Always non-fatal; the scheduler retries on its next tick.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError indicates the collector answered but rejected the request, or
// returned a body the client could not parse. The raw response body is kept
// verbatim for diagnostics.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.Status, e.Body)
}

// IsTransient reports whether an error from the client is worth retrying on
// a later tick. Transport failures and API rejections are transient;
// everything else (signing, serialization) is not.
func IsTransient(err error) bool {
	var te *TransportError
	var ae *APIError
	return errors.As(err, &te) || errors.As(err, &ae)
}

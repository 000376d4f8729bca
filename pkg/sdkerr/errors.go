// Package sdkerr defines the error kinds surfaced by the marketplace SDK core.
//
// Every failure returned by the cache, registry client, contract registry and
// batch engine wraps exactly one of the sentinels below, so callers branch with
// errors.Is instead of matching strings.
package sdkerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown logical name/network pair or an unknown ABI id.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedNetwork is returned for an unrecognized short network name.
	ErrUnsupportedNetwork = errors.New("unsupported network")
	// ErrInvalidAddress is returned when a resolved or supplied address is malformed.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidAbi is returned when a resolved ABI is empty or cannot be parsed.
	ErrInvalidAbi = errors.New("invalid abi")
	// ErrInvalidParameter is returned for bad caller configuration.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrRequestFailed is the generic remote-call failure.
	ErrRequestFailed = errors.New("request failed")
	// ErrUnauthorized is returned when the remote service rejects our credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned when the remote service throttles us.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout is returned when a remote call does not complete in time.
	ErrTimeout = errors.New("timeout")
	// ErrReadOnly is returned when a state-changing call is attempted over a read-only connection.
	ErrReadOnly = errors.New("no signing identity bound to connection")
	// ErrNotStarted marks batch operations that were never started.
	ErrNotStarted = errors.New("operation not started")
)

var kinds = []error{
	ErrNotFound,
	ErrUnsupportedNetwork,
	ErrInvalidAddress,
	ErrInvalidAbi,
	ErrInvalidParameter,
	ErrUnauthorized,
	ErrRateLimited,
	ErrTimeout,
	ErrReadOnly,
	ErrNotStarted,
	ErrRequestFailed,
}

// KindOf returns the sentinel err wraps, or nil if it wraps none of them.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// RequestError describes a failed call against the remote registry service.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Kind       error
	Err        error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Endpoint, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *RequestError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

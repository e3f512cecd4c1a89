// Package application contains use-case orchestration services.
package application

import (
	"errors"
	"fmt"

	"github.com/qbridge-io/qbridge/internal/domain/port/driven"
)

// ErrorKind classifies a failure so the HTTP adapter can pick a status code
// without inspecting provider internals.
type ErrorKind int

const (
	// KindBadRequest covers caller mistakes detected before any external
	// call: missing token, invalid body, save without a secret key.
	KindBadRequest ErrorKind = iota

	// KindAuth means the provider rejected the supplied credentials.
	KindAuth

	// KindProvisioning means the hub or backend lookup failed.
	KindProvisioning

	// KindExecution means the remote job failed, was cancelled, or
	// returned a malformed result.
	KindExecution

	// KindTimeout means the job did not reach a terminal state within
	// the configured wait bound.
	KindTimeout
)

// Error is a classified failure crossing the application boundary.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// badRequestf builds a KindBadRequest error from a format string.
func badRequestf(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Err: fmt.Errorf(format, args...)}
}

// classify wraps a provider error with the taxonomy kind implied by the
// port sentinel it carries. Unrecognized errors default to KindExecution so
// nothing downstream ever surfaces unclassified.
func classify(err error) *Error {
	switch {
	case errors.Is(err, driven.ErrInvalidCredentials):
		return &Error{Kind: KindAuth, Err: err}
	case errors.Is(err, driven.ErrBackendNotFound),
		errors.Is(err, driven.ErrBackendUnavailable):
		return &Error{Kind: KindProvisioning, Err: err}
	default:
		return &Error{Kind: KindExecution, Err: err}
	}
}

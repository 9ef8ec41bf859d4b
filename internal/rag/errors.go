package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus indicates there were no passages to index.
	// Callers treat it as "no document loaded".
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrNotIndexed indicates a search was attempted without a built index.
	ErrNotIndexed = errors.New("not indexed")

	// ErrInvalidInput indicates the caller passed an empty query or
	// invalid chunking parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAdapterFailure indicates the external completion call failed.
	// Match it with errors.Is; the concrete value is an *AdapterError.
	ErrAdapterFailure = errors.New("completion adapter failure")
)

// AdapterError wraps a failure of the completion service (network, auth,
// rate limit, malformed response).
type AdapterError struct {
	Provider string
	Err      error
}

func (e *AdapterError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%v: %v", ErrAdapterFailure, e.Err)
	}
	return fmt.Sprintf("%v (%s): %v", ErrAdapterFailure, e.Provider, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAdapterFailure.
func (e *AdapterError) Is(target error) bool { return target == ErrAdapterFailure }

// Invalid returns an error wrapping ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

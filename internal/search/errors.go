package search

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded signals that the provider's daily quota is exhausted. The
// coordinator stops issuing further queries for the run but still processes
// results fetched so far.
var ErrQuotaExceeded = errors.New("search quota exceeded")

// AuthError reports rejected credentials. It is never retried; all remaining
// activity against the same provider is abandoned for the run.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication rejected: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsFatal reports whether err should abort remaining search activity for the
// run rather than being recorded as a per-query failure.
func IsFatal(err error) bool {
	var authErr *AuthError
	return errors.Is(err, ErrQuotaExceeded) || errors.As(err, &authErr)
}

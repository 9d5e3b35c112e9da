// internal/fetch/errors.go
package fetch

import "fmt"

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// KindTransient covers timeouts, transport errors, HTTP 429 and 5xx.
	// These are retried; a transient error surfaces only once the retry
	// budget is exhausted.
	KindTransient ErrorKind = iota

	// KindPermanent covers 4xx responses other than 429. Retrying a
	// malformed request wastes the retry budget, so these fail immediately.
	KindPermanent

	// KindCanceled means the context was canceled or timed out while
	// waiting between attempts.
	KindCanceled
)

// String returns a human-readable kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the failure arm of a fetch result. It records the classification,
// how many attempts were made, and the last observed status code (0 when the
// failure was a transport error).
type Error struct {
	URL        string
	Kind       ErrorKind
	Attempts   int
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): HTTP %d",
			e.URL, e.Kind, e.Attempts, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %v",
			e.URL, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s)", e.URL, e.Kind, e.Attempts)
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a fetch error of transient kind.
func IsTransient(err error) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == KindTransient
}

// IsPermanent reports whether err is a fetch error of permanent kind.
func IsPermanent(err error) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == KindPermanent
}

package llm

import "errors"

// requestError classifies a provider failure for the retry loop.
// Transient failures (timeouts, 5xx, rate limits) are retried with
// backoff and may fall through to the next endpoint in the capability
// chain; fatal failures (auth, malformed request, unknown provider)
// abort the request immediately.
type requestError struct {
	err       error
	transient bool
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// NewTransientError marks err as retryable.
func NewTransientError(err error) error {
	return &requestError{err: err, transient: true}
}

// NewFatalError marks err as non-retryable.
func NewFatalError(err error) error {
	return &requestError{err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var re *requestError
	return errors.As(err, &re) && re.transient
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var re *requestError
	return errors.As(err, &re) && !re.transient
}

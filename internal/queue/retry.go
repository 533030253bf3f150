package queue

import "errors"

type retryError struct {
	err error
}

func (e *retryError) Error() string { return "retry: " + e.err.Error() }

func (e *retryError) Unwrap() error { return e.err }

// Retry marks err as transient; the queue reschedules the job after the policy delay.
func Retry(err error) error {
	if err == nil {
		return nil
	}

	return &retryError{err: err}
}

// IsRetry reports whether err asks for a retry.
func IsRetry(err error) bool {
	var r *retryError
	return errors.As(err, &r)
}

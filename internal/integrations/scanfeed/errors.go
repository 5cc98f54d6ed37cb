package scanfeed

import (
	"context"
	"errors"
	"net"
)

// TransientError marks a fetch failure worth retrying: timeouts, broken
// transport, upstream 5xx. Everything else propagates immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// Deadline hit inside the HTTP client, not by the caller.
	return errors.Is(err, context.DeadlineExceeded)
}

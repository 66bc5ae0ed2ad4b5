package client

import (
	"errors"
	"fmt"
)

// ErrNetwork is a transient remote failure: timeout, unreachable host, 5xx or
// an unreadable response. Operations failing with it can be retried later.
var ErrNetwork = errors.New("remote store unavailable")

// RejectedError is a permanent refusal of a create by the remote store.
// Retrying the same request will not succeed.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store rejected record (status %d)", e.Status)
	}
	return fmt.Sprintf("remote store rejected record (status %d): %s", e.Status, e.Message)
}

// IsRetryable reports whether err leaves the operation eligible for a retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsRejected reports whether err is a permanent remote rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

func networkError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
}

package store

import (
	"errors"
	"fmt"
)

// TransientIOError is a network, auth, or timeout failure talking to the
// authoritative store. Callers absorb it and try again on the next tick.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a TransientIOError.
func IsTransient(err error) bool {
	var te *TransientIOError
	return errors.As(err, &te)
}

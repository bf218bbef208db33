package lock

import "errors"

// Lock-related errors.
var (
	// ErrLockTimeout is returned when a channel lock cannot be acquired within the timeout period.
	ErrLockTimeout = errors.New("channel lock acquisition timeout")
)

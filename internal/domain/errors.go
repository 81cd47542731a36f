package domain

import "errors"

var (
	// ErrNotFound marks a remote resource (channel, message, role, user) that
	// no longer exists. Callers treat it as a cleanup trigger, never as a
	// transient failure.
	ErrNotFound = errors.New("not found")
)

package engine

import "errors"

var (
	// ErrClosed is returned by Submit after the engine shuts down.
	ErrClosed = errors.New("matching engine is closed")
)

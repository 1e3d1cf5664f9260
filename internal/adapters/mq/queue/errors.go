package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("scoring queue full")
	ErrClosed = errors.New("scoring queue closed")
)

package train

import "errors"

// Sentinel errors.
var (
	// ErrNoRows is returned when there is nothing to train on.
	ErrNoRows = errors.New("no training rows")
	// ErrInvalidSplit is returned for a test fraction outside (0,1).
	ErrInvalidSplit = errors.New("invalid test fraction")
	// ErrInvalidParams is returned for unusable boosting parameters.
	ErrInvalidParams = errors.New("invalid boosting parameters")
)

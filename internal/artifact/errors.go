package artifact

import "errors"

// Sentinel errors.
var (
	// ErrIncompatible is returned when the model and schema of an artifact disagree.
	ErrIncompatible = errors.New("artifact model and schema are incompatible")
	// ErrMalformed is returned for artifacts that cannot be decoded.
	ErrMalformed = errors.New("malformed artifact")
)

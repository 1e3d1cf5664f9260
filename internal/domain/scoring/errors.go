package scoring

import "errors"

// Sentinel errors.
var (
	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("transient scoring failure")
	// ErrFeatureWidth is returned when a vector does not match the model width.
	ErrFeatureWidth = errors.New("feature vector width mismatch")
	// ErrInvalidModel is returned for structurally broken ensembles.
	ErrInvalidModel = errors.New("invalid model")
)

package artifactstore

import "errors"

// Sentinel errors.
var (
	// ErrNotFound is returned when no artifact exists at the URI.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidURI is returned for URIs the store cannot address.
	ErrInvalidURI = errors.New("invalid artifact uri")
)

package ingest

import "errors"

// Sentinel errors.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformedRow  = errors.New("malformed row")
	ErrInvalidWeeks  = errors.New("invalid week range")
)

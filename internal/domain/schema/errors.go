package schema

import "errors"

// Sentinel errors.
var (
	// ErrUnknownCategory is returned by Validate for a value outside a block's categories.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrSchemaMismatch is returned when a stored schema is inconsistent with this build.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrUnknownField is returned for a categorical field the schema does not encode.
	ErrUnknownField = errors.New("unknown categorical field")
)

package scenario

import "errors"

// ErrInvalidScenario is returned for scenarios rejected at the serving boundary.
var ErrInvalidScenario = errors.New("invalid scenario")

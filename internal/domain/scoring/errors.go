package scoring

import "errors"

// Sentinel errors for scoring capabilities.
var (
	ErrWeightCount = errors.New("weight count does not match feature count")
	ErrNonFinite   = errors.New("model produced a non-finite value")
)

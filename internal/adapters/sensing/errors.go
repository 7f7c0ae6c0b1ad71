package sensing

import "errors"

// Sentinel errors for context providers.
var (
	ErrNoPosition       = errors.New("device position unknown")
	ErrUnexpectedStatus = errors.New("unexpected status from weather service")
	ErrNoValue          = errors.New("provider returned no value")
)

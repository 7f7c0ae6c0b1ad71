package arcgis

import "errors"

// Sentinel errors for the feature service client.
var (
	ErrUnexpectedStatus = errors.New("unexpected status from feature service")
	ErrService          = errors.New("feature service error")
)

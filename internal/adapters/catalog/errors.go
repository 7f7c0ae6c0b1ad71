package catalog

import "errors"

// Sentinel errors for catalog sources.
var (
	ErrNotFeatureCollection = errors.New("not a GeoJSON FeatureCollection")
	ErrPageLimit            = errors.New("feature service paging did not terminate")
)

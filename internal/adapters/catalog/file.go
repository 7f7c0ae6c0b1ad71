package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/pkg/logger"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry *struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FileSource reads a GeoJSON FeatureCollection of point features.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and converts the whole file. Non-point features and features
// without an osm_id are skipped.
func (s *FileSource) Fetch(ctx context.Context) ([]model.POI, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", s.path, err)
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", s.path, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%s: %w", s.path, ErrNotFeatureCollection)
	}

	pois := make([]model.POI, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		at, ok := pointOf(f)
		if !ok {
			skipped++
			continue
		}
		poi, ok := toPOI(f.Properties, at)
		if !ok {
			skipped++
			continue
		}
		pois = append(pois, poi)
	}

	if skipped > 0 {
		logger.Get().Warn(ctx, "skipped catalog features",
			logger.String("path", s.path),
			logger.Int("skipped", skipped))
	}
	return pois, nil
}

// pointOf decodes the coordinates of a Point feature. Other geometry types
// carry nested arrays and are never decoded.
func pointOf(f feature) (model.Point, bool) {
	if f.Geometry == nil || f.Geometry.Type != "Point" {
		return model.Point{}, false
	}
	var coords []float64
	if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil || len(coords) < 2 {
		return model.Point{}, false
	}
	return model.Point{Lon: coords[0], Lat: coords[1]}, true
}

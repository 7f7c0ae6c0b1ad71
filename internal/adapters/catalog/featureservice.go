package catalog

import (
	"context"
	"fmt"

	"github.com/okian/myplaces/internal/adapters/arcgis"
	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/pkg/logger"
)

const (
	defaultPageSize = 1000
	maxPages        = 10000
)

// FeatureServiceSource pages through an ArcGIS feature layer.
type FeatureServiceSource struct {
	client   *arcgis.Client
	layerURL string
	pageSize int
}

// NewFeatureServiceSource creates a source for the layer at layerURL.
func NewFeatureServiceSource(c *arcgis.Client, layerURL string, pageSize int) *FeatureServiceSource {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &FeatureServiceSource{client: c, layerURL: layerURL, pageSize: pageSize}
}

// Fetch reads every page until the service reports no transfer limit was
// hit. Any failing page fails the whole fetch.
func (s *FeatureServiceSource) Fetch(ctx context.Context) ([]model.POI, error) {
	var pois []model.POI
	offset := 0
	for page := 0; page < maxPages; page++ {
		res, err := s.client.Query(ctx, s.layerURL, arcgis.Query{
			ReturnGeometry: true,
			Offset:         offset,
			Count:          s.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page at offset %d: %w", offset, err)
		}

		for _, f := range res.Features {
			if f.Geometry == nil {
				continue
			}
			if poi, ok := toPOI(f.Attributes, model.Point{Lon: f.Geometry.X, Lat: f.Geometry.Y}); ok {
				pois = append(pois, poi)
			}
		}

		if !res.ExceededTransferLimit || len(res.Features) == 0 {
			logger.Get().Debug(ctx, "catalog fetched",
				logger.String("layer", s.layerURL),
				logger.Int("pages", page+1),
				logger.Int("pois", len(pois)))
			return pois, nil
		}
		offset += len(res.Features)
	}
	return nil, ErrPageLimit
}

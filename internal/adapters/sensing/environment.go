package sensing

import (
	"context"
	"fmt"

	"github.com/okian/myplaces/internal/adapters/arcgis"
	"github.com/okian/myplaces/internal/domain/model"
)

// EnvironmentField is the label attribute of the environment layer.
const EnvironmentField = "DESC_VAL"

// EnvironmentProvider returns the environment label at a position.
type EnvironmentProvider interface {
	EnvironmentLabel(ctx context.Context, at model.Point) (string, error)
}

// EnvironmentClient reads the environment classification layer.
type EnvironmentClient struct {
	client   *arcgis.Client
	layerURL string
}

// NewEnvironmentClient creates a client for the layer at layerURL.
func NewEnvironmentClient(c *arcgis.Client, layerURL string) *EnvironmentClient {
	return &EnvironmentClient{client: c, layerURL: layerURL}
}

// EnvironmentLabel returns the label of the first polygon containing at.
func (c *EnvironmentClient) EnvironmentLabel(ctx context.Context, at model.Point) (string, error) {
	res, err := c.client.Query(ctx, c.layerURL, arcgis.Query{
		OutFields:  []string{EnvironmentField},
		Intersects: &arcgis.Point{X: at.Lon, Y: at.Lat},
	})
	if err != nil {
		return "", err
	}
	for _, f := range res.Features {
		if label, ok := f.String(EnvironmentField); ok {
			return label, nil
		}
	}
	return "", fmt.Errorf("%s: %w", EnvironmentField, ErrNoValue)
}

// Package catalog loads the POI universe from an OSM extract, either a
// GeoJSON file or an ArcGIS feature service.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/myplaces/internal/domain/identity"
	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/internal/domain/openinghours"
)

// Attribute names of the OSM POI extract.
const (
	FieldOSMID        = "osm_id"
	FieldClass        = "fclass"
	FieldName         = "name"
	FieldAddress      = "addr"
	FieldOtherTags    = "other_tags"
	FieldOpeningHours = "opening_hours"
)

// Source produces the full POI universe.
type Source interface {
	Fetch(ctx context.Context) ([]model.POI, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.POI, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]model.POI, error) { return f(ctx) }

// toPOI converts one feature. Features without an osm_id are dropped.
func toPOI(attrs map[string]any, at model.Point) (model.POI, bool) {
	key := identity.NormalizeKey(attrString(attrs, FieldOSMID))
	if key == "" {
		return model.POI{}, false
	}
	return model.POI{
		ExternalKey: key,
		ID:          identity.DeriveID(key),
		Category:    strings.TrimSpace(attrString(attrs, FieldClass)),
		Name:        attrString(attrs, FieldName),
		Address:     attrString(attrs, FieldAddress),
		RawTags:     rawTags(attrString(attrs, FieldOtherTags), attrString(attrs, FieldOpeningHours)),
		Geometry:    at,
	}, true
}

// rawTags merges the hstore tag blob with a standalone opening_hours
// attribute. Some extracts carry the whole blob in opening_hours, others
// just the rule.
func rawTags(other, hours string) string {
	hours = strings.TrimSpace(hours)
	switch {
	case hours == "":
		return other
	case strings.Contains(hours, "=>"):
		if other == "" {
			return hours
		}
		return other + "," + hours
	}
	if _, ok := openinghours.ExtractRule(other); ok {
		return other
	}
	tag := fmt.Sprintf("%q=>%q", openinghours.RuleKey, hours)
	if other == "" {
		return tag
	}
	return other + "," + tag
}

func attrString(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/okian/myplaces/internal/adapters/arcgis"
	"github.com/okian/myplaces/internal/adapters/catalog"
	"github.com/okian/myplaces/internal/domain/identity"
	"github.com/okian/myplaces/internal/domain/openinghours"
	"github.com/okian/myplaces/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithWriter(io.Discard))
	os.Exit(m.Run())
}

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.5417, 47.3769]},
     "properties": {"osm_id": "101", "fclass": "cafe", "name": "Café Odeon", "addr": "Limmatquai 2",
                    "other_tags": "\"wheelchair\"=>\"yes\",\"opening_hours\"=>\"Mo-Fr 07:00-23:00\""}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.5400, 47.3700]},
     "properties": {"osm_id": 102, "fclass": "museum", "name": "Landesmuseum", "opening_hours": "Tu-Su 10:00-17:00"}},
    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[8.5, 47.3], [8.6, 47.4]]},
     "properties": {"osm_id": "103", "fclass": "park"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.5, 47.3]},
     "properties": {"fclass": "bench"}}
  ]
}`

func writeFile(dir, name, content string) string {
	p := filepath.Join(dir, name)
	So(os.WriteFile(p, []byte(content), 0o600), ShouldBeNil)
	return p
}

func TestFileSource(t *testing.T) {
	Convey("Given a GeoJSON catalog file", t, func() {
		path := writeFile(t.TempDir(), "pois.geojson", sampleGeoJSON)

		Convey("When it is fetched", func() {
			pois, err := catalog.NewFileSource(path).Fetch(context.Background())

			Convey("Then point features with an osm_id become POIs", func() {
				So(err, ShouldBeNil)
				So(pois, ShouldHaveLength, 2)

				So(pois[0].ExternalKey, ShouldEqual, "101")
				So(pois[0].ID, ShouldEqual, identity.DeriveID("101"))
				So(pois[0].Category, ShouldEqual, "cafe")
				So(pois[0].Name, ShouldEqual, "Café Odeon")
				So(pois[0].Address, ShouldEqual, "Limmatquai 2")
				So(pois[0].Geometry.Lon, ShouldEqual, 8.5417)
				So(pois[0].Geometry.Lat, ShouldEqual, 47.3769)

				So(pois[1].ExternalKey, ShouldEqual, "102")
			})

			Convey("Then opening hours are reachable from the raw tags", func() {
				So(pois, ShouldHaveLength, 2)
				rule, ok := openinghours.ExtractRule(pois[0].RawTags)
				So(ok, ShouldBeTrue)
				So(rule, ShouldEqual, "Mo-Fr 07:00-23:00")

				rule, ok = openinghours.ExtractRule(pois[1].RawTags)
				So(ok, ShouldBeTrue)
				So(rule, ShouldEqual, "Tu-Su 10:00-17:00")
				// 2025-06-11 is a Wednesday.
				So(openinghours.IsOpen(pois[1].RawTags, time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the file mixes polygons and broken points", func() {
			mixed := writeFile(t.TempDir(), "mixed.geojson", `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[8.5, 47.3], [8.6, 47.3], [8.6, 47.4], [8.5, 47.3]]]},
     "properties": {"osm_id": "301", "fclass": "park"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [[8.5, 47.3]]},
     "properties": {"osm_id": "302", "fclass": "cafe"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.5]},
     "properties": {"osm_id": "303", "fclass": "cafe"}},
    {"type": "Feature", "geometry": null, "properties": {"osm_id": "304", "fclass": "cafe"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.55, 47.37]},
     "properties": {"osm_id": "305", "fclass": "bar"}}
  ]
}`)
			pois, err := catalog.NewFileSource(mixed).Fetch(context.Background())

			Convey("Then only the usable point survives", func() {
				So(err, ShouldBeNil)
				So(pois, ShouldHaveLength, 1)
				So(pois[0].ExternalKey, ShouldEqual, "305")
				So(pois[0].Geometry.Lon, ShouldEqual, 8.55)
				So(pois[0].Geometry.Lat, ShouldEqual, 47.37)
			})
		})

		Convey("When the file is not a FeatureCollection", func() {
			bad := writeFile(t.TempDir(), "bad.geojson", `{"type":"Feature"}`)
			_, err := catalog.NewFileSource(bad).Fetch(context.Background())

			Convey("Then the fetch fails", func() {
				So(errors.Is(err, catalog.ErrNotFeatureCollection), ShouldBeTrue)
			})
		})

		Convey("When the file is missing", func() {
			_, err := catalog.NewFileSource(filepath.Join(t.TempDir(), "none.geojson")).Fetch(context.Background())

			Convey("Then the fetch fails", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})
	})
}

func TestFeatureServiceSource(t *testing.T) {
	Convey("Given a feature service with 5 features served in pages", t, func() {
		var offsets []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			offsets = append(offsets, q.Get("resultOffset"))
			offset, _ := strconv.Atoi(q.Get("resultOffset"))
			count, _ := strconv.Atoi(q.Get("resultRecordCount"))

			total := 5
			end := offset + count
			if end > total {
				end = total
			}
			body := `{"features":[`
			for i := offset; i < end; i++ {
				if i > offset {
					body += ","
				}
				body += fmt.Sprintf(`{"attributes":{"osm_id":"%d","fclass":"bar","name":"Bar %d"},"geometry":{"x":8.%d,"y":47.%d}}`, i, i, i, i)
			}
			body += fmt.Sprintf(`],"exceededTransferLimit":%t}`, end < total)
			_, _ = io.WriteString(w, body)
		}))
		defer srv.Close()

		src := catalog.NewFeatureServiceSource(arcgis.NewClient(), srv.URL+"/FeatureServer/0", 2)

		Convey("When the universe is fetched", func() {
			pois, err := src.Fetch(context.Background())

			Convey("Then every page is read in order", func() {
				So(err, ShouldBeNil)
				So(offsets, ShouldResemble, []string{"", "2", "4"})
				So(pois, ShouldHaveLength, 5)
				for i, p := range pois {
					So(p.ExternalKey, ShouldEqual, strconv.Itoa(i))
					So(p.Category, ShouldEqual, "bar")
				}
			})
		})
	})

	Convey("Given a feature service that fails mid-way", t, func() {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls > 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = io.WriteString(w, `{"features":[{"attributes":{"osm_id":"1"},"geometry":{"x":1,"y":2}}],"exceededTransferLimit":true}`)
		}))
		defer srv.Close()

		Convey("Then the whole fetch fails", func() {
			_, err := catalog.NewFeatureServiceSource(arcgis.NewClient(), srv.URL, 1).Fetch(context.Background())
			So(errors.Is(err, arcgis.ErrUnexpectedStatus), ShouldBeTrue)
		})
	})
}

package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/okian/myplaces/internal/adapters/http/api"
	"github.com/okian/myplaces/internal/adapters/sensing"
	service "github.com/okian/myplaces/internal/app"
	"github.com/okian/myplaces/internal/domain/identity"
	"github.com/okian/myplaces/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	mu          sync.Mutex
	pois        map[string]model.POI
	relevant    []model.POI
	relevantErr error
	sessionErr  error
	readyErr    error
	clicks      []string
	favorites   []string
	sessions    int
}

func newMockDependencies() *mockDependencies {
	cafe := model.POI{ExternalKey: "101", ID: identity.DeriveID("101"), Name: "Odeon", Category: "cafe",
		Geometry: model.Point{Lon: 8.5417, Lat: 47.3769}}
	bar := model.POI{ExternalKey: "102", ID: identity.DeriveID("102"), Name: "Kronenhalle", Category: "bar"}
	return &mockDependencies{
		pois:     map[string]model.POI{"101": cafe, "102": bar},
		relevant: []model.POI{cafe},
	}
}

func (m *mockDependencies) RelevantPOIs(context.Context) ([]model.POI, error) {
	return m.relevant, m.relevantErr
}

func (m *mockDependencies) RunSession(context.Context) ([]model.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	m.sessions++
	return m.relevant, nil
}

func (m *mockDependencies) Lookup(key string) (model.POI, bool) {
	p, ok := m.pois[key]
	return p, ok
}

func (m *mockDependencies) RecordClick(_ context.Context, p model.POI) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, p.ExternalKey)
}

func (m *mockDependencies) MarkFavorite(_ context.Context, p model.POI) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites = append(m.favorites, p.ExternalKey)
}

func (m *mockDependencies) Ready(context.Context) error { return m.readyErr }

func (m *mockDependencies) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "universeSize": len(m.pois)}
}

type poiList struct {
	Count int `json:"count"`
	POIs  []struct {
		Key      string  `json:"key"`
		ID       string  `json:"id"`
		Category string  `json:"category"`
		Lon      float64 `json:"lon"`
	} `json:"pois"`
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		locator := sensing.NewDeviceLocator()
		mux := http.NewServeMux()
		api.NewServer(deps, locator).Register(context.Background(), mux)

		Convey("When listing POIs", func() {
			w := serve(mux, http.MethodGet, "/pois", "")

			Convey("Then the relevant set is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				var got poiList
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Count, ShouldEqual, 1)
				So(got.POIs[0].Key, ShouldEqual, "101")
				So(got.POIs[0].ID, ShouldEqual, identity.DeriveID("101").String())
				So(got.POIs[0].Lon, ShouldEqual, 8.5417)
			})
		})

		Convey("When listing POIs without a user", func() {
			deps.relevantErr = service.ErrNoCurrentUser
			w := serve(mux, http.MethodGet, "/pois", "")

			Convey("Then it is a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, "no_user")
			})
		})

		Convey("When listing POIs fails otherwise", func() {
			deps.relevantErr = errors.New("disk on fire")
			w := serve(mux, http.MethodGet, "/pois", "")

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When clicking a known POI", func() {
			w := serve(mux, http.MethodPost, "/pois/102/click", "")

			Convey("Then the click is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.clicks, ShouldResemble, []string{"102"})
				So(deps.favorites, ShouldBeEmpty)
			})
		})

		Convey("When favoriting a known POI", func() {
			w := serve(mux, http.MethodPost, "/pois/101/favorite", "")

			Convey("Then the favorite is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.favorites, ShouldResemble, []string{"101"})
			})
		})

		Convey("When clicking an unknown POI", func() {
			w := serve(mux, http.MethodPost, "/pois/999/click", "")

			Convey("Then it is not found and nothing is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(deps.clicks, ShouldBeEmpty)
			})
		})

		Convey("When clicking with the wrong method", func() {
			w := serve(mux, http.MethodGet, "/pois/101/click", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a session is requested", func() {
			w := serve(mux, http.MethodPost, "/session", "")

			Convey("Then it runs and returns the relevant set", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.sessions, ShouldEqual, 1)
				So(w.Body.String(), ShouldContainSubstring, `"count":1`)
			})
		})

		Convey("When a session fails without a user", func() {
			deps.sessionErr = service.ErrNoCurrentUser
			w := serve(mux, http.MethodPost, "/session", "")

			Convey("Then it is a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the location is updated", func() {
			w := serve(mux, http.MethodPut, "/location", `{"lat": 47.3769, "lon": 8.5417, "speed_mps": 2.5}`)

			Convey("Then the locator holds the fix", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				fix, ok := locator.Fix()
				So(ok, ShouldBeTrue)
				So(fix.Position, ShouldResemble, model.Point{Lon: 8.5417, Lat: 47.3769})
				So(fix.SpeedMps, ShouldEqual, 2.5)
			})
		})

		Convey("When the location has no speed", func() {
			w := serve(mux, http.MethodPut, "/location", `{"lat": 47.3769, "lon": 8.5417}`)

			Convey("Then the speed is marked unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				fix, _ := locator.Fix()
				So(fix.SpeedMps, ShouldBeLessThan, 0)
			})
		})

		Convey("When the location is malformed", func() {
			Convey("Then bad JSON is rejected", func() {
				So(serve(mux, http.MethodPut, "/location", `{"lat":`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then a missing coordinate is rejected", func() {
				So(serve(mux, http.MethodPut, "/location", `{"lat": 47.3}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then an out of range latitude is rejected", func() {
				So(serve(mux, http.MethodPut, "/location", `{"lat": 91, "lon": 8}`).Code, ShouldEqual, http.StatusBadRequest)
				_, ok := locator.Fix()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When checking health", func() {
			Convey("Then a reachable ledger is ok", func() {
				w := serve(mux, http.MethodGet, "/healthz", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})

			Convey("Then an unreachable ledger is unavailable", func() {
				deps.readyErr = errors.New("database is locked")
				w := serve(mux, http.MethodGet, "/healthz", "")
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "database is locked")
			})
		})

		Convey("When reading stats", func() {
			w := serve(mux, http.MethodGet, "/stats", "")

			Convey("Then the provider stats are encoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["started"], ShouldEqual, true)
				So(got["universeSize"], ShouldEqual, 2.0)
			})
		})

		Convey("When scraping metrics after a request", func() {
			serve(mux, http.MethodGet, "/pois", "")
			w := serve(mux, http.MethodGet, "/metrics", "")

			Convey("Then the request counters are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "myplaces_relevance_http_requests_total")
			})
		})
	})
}

// Package arcgis is a minimal client for ArcGIS REST feature layer queries.
package arcgis

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/myplaces/internal/adapters/breaker"
)

const (
	defaultTimeout = 10 * time.Second
	wgs84          = "4326"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBreaker guards every query with b.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// Client queries feature layers.
type Client struct {
	http    *http.Client
	breaker *breaker.Breaker
}

// NewClient creates a client. Without WithBreaker it gets its own breaker.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = breaker.New("arcgis")
	}
	return c
}

// Query selects features of a layer.
type Query struct {
	Where          string
	OutFields      []string
	Intersects     *Point // point-intersects spatial filter
	ReturnGeometry bool
	Offset         int
	Count          int // 0 leaves the page size to the service
}

// Point is a WGS84 point.
type Point struct {
	X float64 `json:"x"` // longitude
	Y float64 `json:"y"` // latitude
}

// Feature is one row of a query result.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *Point         `json:"geometry,omitempty"`
}

// String returns attribute key as a string. Numeric ids are formatted
// without exponent.
func (f Feature) String(key string) (string, bool) {
	switch v := f.Attributes[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// Result is a decoded query response.
type Result struct {
	Features              []Feature `json:"features"`
	ExceededTransferLimit bool      `json:"exceededTransferLimit"`
}

type response struct {
	Result
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Query runs q against the layer at layerURL (…/FeatureServer/<n>).
func (c *Client) Query(ctx context.Context, layerURL string, q Query) (*Result, error) {
	return breaker.Execute(c.breaker, func() (*Result, error) {
		return c.query(ctx, layerURL, q)
	})
}

func (c *Client) query(ctx context.Context, layerURL string, q Query) (*Result, error) {
	endpoint := strings.TrimRight(layerURL, "/") + "/query?" + q.values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature layer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode feature layer response: %w", err)
	}
	// The service reports errors with a 200 status.
	if out.Error != nil {
		return nil, fmt.Errorf("%w (%d): %s", ErrService, out.Error.Code, out.Error.Message)
	}
	return &out.Result, nil
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("f", "json")
	where := q.Where
	if where == "" {
		where = "1=1"
	}
	v.Set("where", where)
	if len(q.OutFields) > 0 {
		v.Set("outFields", strings.Join(q.OutFields, ","))
	} else {
		v.Set("outFields", "*")
	}
	v.Set("returnGeometry", strconv.FormatBool(q.ReturnGeometry))
	v.Set("outSR", wgs84)
	if q.Intersects != nil {
		v.Set("geometry", fmt.Sprintf("%s,%s",
			strconv.FormatFloat(q.Intersects.X, 'f', -1, 64),
			strconv.FormatFloat(q.Intersects.Y, 'f', -1, 64)))
		v.Set("geometryType", "esriGeometryPoint")
		v.Set("inSR", wgs84)
		v.Set("spatialRel", "esriSpatialRelIntersects")
	}
	if q.Offset > 0 {
		v.Set("resultOffset", strconv.Itoa(q.Offset))
	}
	if q.Count > 0 {
		v.Set("resultRecordCount", strconv.Itoa(q.Count))
	}
	return v
}

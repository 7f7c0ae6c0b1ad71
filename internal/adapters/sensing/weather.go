package sensing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/myplaces/internal/adapters/breaker"
	"github.com/okian/myplaces/internal/domain/model"
)

// DefaultWeatherURL is the Open-Meteo forecast endpoint.
const DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

// WeatherProvider returns the current WMO weather code at a position.
type WeatherProvider interface {
	WeatherCode(ctx context.Context, at model.Point) (int, error)
}

// OpenMeteoClient implements WeatherProvider against Open-Meteo.
type OpenMeteoClient struct {
	client  *http.Client
	baseURL string
	breaker *breaker.Breaker
}

type openMeteoResponse struct {
	Current struct {
		WeatherCode *int `json:"weather_code"`
	} `json:"current"`
}

// NewOpenMeteoClient creates a client for baseURL, or DefaultWeatherURL
// when empty.
func NewOpenMeteoClient(baseURL string, b *breaker.Breaker) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	if b == nil {
		b = breaker.New("open-meteo")
	}
	return &OpenMeteoClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		breaker: b,
	}
}

// WeatherCode queries the current weather code.
func (c *OpenMeteoClient) WeatherCode(ctx context.Context, at model.Point) (int, error) {
	return breaker.Execute(c.breaker, func() (int, error) {
		return c.fetch(ctx, at)
	})
}

func (c *OpenMeteoClient) fetch(ctx context.Context, at model.Point) (int, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(at.Lon, 'f', -1, 64))
	q.Set("current", "weather_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to query weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if out.Current.WeatherCode == nil {
		return 0, fmt.Errorf("weather_code: %w", ErrNoValue)
	}
	return *out.Current.WeatherCode, nil
}

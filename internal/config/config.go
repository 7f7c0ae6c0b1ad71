// Package config defines process configuration and its loading.
//
// Conventions:
// - New(ctx) returns a Config holding every default.
// - Load(ctx) layers a YAML file and MYPLACES_ environment variables on top.
// - Validation errors wrap ErrInvalidConfig; load errors wrap ErrLoadConfig.
package config

import (
	"context"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host database

	"github.com/okian/myplaces/internal/domain/scoring"
)

// Catalog source kinds.
const (
	CatalogFile           = "file"
	CatalogFeatureService = "featureservice"
	CatalogNone           = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// DatabasePath is the sqlite DSN of the score ledger.
	DatabasePath string `koanf:"database_path" validate:"required"`

	// WorkerCount sets the relevance pass workers; 0 picks twice the CPU count.
	WorkerCount int `koanf:"worker_count" validate:"gte=0"`

	// RelevanceThreshold is the strict lower bound of a relevant score.
	RelevanceThreshold float64 `koanf:"relevance_threshold" validate:"gte=0,lte=1"`

	// SessionInterval is the period of the background session loop.
	SessionInterval time.Duration `koanf:"session_interval" validate:"gt=0"`

	// Timezone is the IANA zone used for hours and weekdays.
	Timezone string `koanf:"timezone" validate:"required"`

	// LookupTimeout bounds each weather and environment lookup.
	LookupTimeout time.Duration `koanf:"lookup_timeout" validate:"gt=0"`

	Catalog     CatalogConfig  `koanf:"catalog"`
	Weather     EndpointConfig `koanf:"weather"`
	Environment EndpointConfig `koanf:"environment"`
	Breaker     BreakerConfig  `koanf:"breaker"`
	Location    LocationConfig `koanf:"location"`
	Profile     ProfileConfig  `koanf:"profile"`
	Model       ModelConfig    `koanf:"model"`
}

// CatalogConfig selects where the POI universe comes from.
type CatalogConfig struct {
	Kind     string `koanf:"kind" validate:"oneof=file featureservice none"`
	Path     string `koanf:"path" validate:"required_if=Kind file"`
	URL      string `koanf:"url" validate:"omitempty,url"`
	PageSize int    `koanf:"page_size" validate:"gte=0"`
}

// EndpointConfig is a remote lookup. An empty URL disables it.
type EndpointConfig struct {
	URL string `koanf:"url" validate:"omitempty,url"`
}

// BreakerConfig tunes the circuit breakers of the remote clients.
type BreakerConfig struct {
	FailureThreshold int           `koanf:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"gt=0"`
}

// LocationConfig seeds the device position until the first fix arrives.
type LocationConfig struct {
	Lat *float64 `koanf:"lat" validate:"omitempty,latitude"`
	Lon *float64 `koanf:"lon" validate:"omitempty,longitude"`
}

// ProfileConfig creates the local user on first start. An empty name
// skips creation.
type ProfileConfig struct {
	Name  string `koanf:"name"`
	Email string `koanf:"email" validate:"omitempty,email"`
}

// ModelConfig holds the local relevance model parameters. Nil weights use
// the built-in vector.
type ModelConfig struct {
	Bias    float64   `koanf:"bias"`
	Weights []float64 `koanf:"weights" validate:"omitempty,len=9"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		DatabasePath:       "myplaces.db",
		WorkerCount:        0,
		RelevanceThreshold: 0.5,
		SessionInterval:    5 * time.Minute,
		Timezone:           "Europe/Zurich",
		LookupTimeout:      5 * time.Second,
		Catalog: CatalogConfig{
			Kind:     CatalogFile,
			Path:     "pois.geojson",
			PageSize: 1000,
		},
		Weather: EndpointConfig{
			URL: "https://api.open-meteo.com/v1/forecast",
		},
		Environment: EndpointConfig{
			URL: "https://services.arcgis.com/wg31rjAWgC3uC62p/arcgis/rest/services/Environment_Klassifikation/FeatureServer/0",
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      time.Minute,
		},
		Model: ModelConfig{
			Bias: scoring.DefaultBias,
		},
	}
}

// Zone loads the configured time zone.
func (c *Config) Zone() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

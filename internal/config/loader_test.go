package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/myplaces/internal/config"
	"github.com/okian/myplaces/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.RelevanceThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.SessionInterval, convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.Catalog.Kind, convey.ShouldEqual, config.CatalogFile)
			convey.So(cfg.Model.Bias, convey.ShouldEqual, scoring.DefaultBias)
			convey.So(cfg.Model.Weights, convey.ShouldBeNil)
			convey.So(config.Validate(cfg), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DatabasePath, convey.ShouldEqual, "myplaces.db")
				convey.So(cfg.Breaker.FailureThreshold, convey.ShouldEqual, 5)
				convey.So(cfg.Location.Lat, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MYPLACES_ADDR", ":8080")
			_ = os.Setenv("MYPLACES_WORKER_COUNT", "16")
			_ = os.Setenv("MYPLACES_RELEVANCE_THRESHOLD", "0.7")
			_ = os.Setenv("MYPLACES_SESSION_INTERVAL", "30s")
			_ = os.Setenv("MYPLACES_CATALOG__PAGE_SIZE", "250")
			_ = os.Setenv("MYPLACES_BREAKER__OPEN_TIMEOUT", "2m")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults, nested keys included", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.RelevanceThreshold, convey.ShouldEqual, 0.7)
				convey.So(cfg.SessionInterval, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.Catalog.PageSize, convey.ShouldEqual, 250)
				convey.So(cfg.Catalog.Kind, convey.ShouldEqual, config.CatalogFile)
				convey.So(cfg.Breaker.OpenTimeout, convey.ShouldEqual, 2*time.Minute)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
timezone: UTC
catalog:
  kind: featureservice
  url: https://services.arcgis.com/x/arcgis/rest/services/OSM_POI/FeatureServer/0
weather:
  url: https://api.open-meteo.com/v1/forecast
location:
  lat: 47.3769
  lon: 8.5417
profile:
  name: Ada
  email: ada@example.org
model:
  bias: 0.1
  weights: [1, 2, 3, 4, 5, 6, 7, 8, 9]
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("MYPLACES_CONFIG", tmpFile)
			_ = os.Setenv("MYPLACES_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
				convey.So(cfg.Catalog.Kind, convey.ShouldEqual, config.CatalogFeatureService)
				convey.So(cfg.Catalog.PageSize, convey.ShouldEqual, 1000)
				convey.So(cfg.Weather.URL, convey.ShouldEqual, "https://api.open-meteo.com/v1/forecast")
				convey.So(*cfg.Location.Lat, convey.ShouldEqual, 47.3769)
				convey.So(*cfg.Location.Lon, convey.ShouldEqual, 8.5417)
				convey.So(cfg.Profile.Name, convey.ShouldEqual, "Ada")
				convey.So(cfg.Model.Bias, convey.ShouldEqual, 0.1)
				convey.So(cfg.Model.Weights, convey.ShouldHaveLength, 9)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("MYPLACES_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("MYPLACES_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("MYPLACES_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given a valid default config", t, func() {
		cfg := config.New(context.Background())
		invalid := func() bool { return errors.Is(config.Validate(cfg), config.ErrInvalidConfig) }

		convey.Convey("Then an empty addr is rejected", func() {
			cfg.Addr = ""
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then an unknown log level is rejected", func() {
			cfg.LogLevel = "verbose"
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a threshold outside [0, 1] is rejected", func() {
			cfg.RelevanceThreshold = 1.5
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then an unknown time zone is rejected", func() {
			cfg.Timezone = "Mars/Olympus_Mons"
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a feature service catalog needs a url", func() {
			cfg.Catalog.Kind = config.CatalogFeatureService
			convey.So(invalid(), convey.ShouldBeTrue)
			cfg.Catalog.URL = "https://example.org/FeatureServer/0"
			convey.So(config.Validate(cfg), convey.ShouldBeNil)
		})

		convey.Convey("Then a file catalog needs a path", func() {
			cfg.Catalog.Path = ""
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a half seeded location is rejected", func() {
			lat := 47.3
			cfg.Location.Lat = &lat
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a latitude out of range is rejected", func() {
			lat, lon := 123.0, 8.5
			cfg.Location.Lat, cfg.Location.Lon = &lat, &lon
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a weight vector of the wrong length is rejected", func() {
			cfg.Model.Weights = []float64{1, 2, 3}
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a profile name needs an email", func() {
			cfg.Profile.Name = "Ada"
			convey.So(invalid(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a malformed profile email is rejected", func() {
			cfg.Profile.Email = "not-an-email"
			convey.So(invalid(), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"MYPLACES_CONFIG",
		"MYPLACES_ADDR",
		"MYPLACES_WORKER_COUNT",
		"MYPLACES_RELEVANCE_THRESHOLD",
		"MYPLACES_SESSION_INTERVAL",
		"MYPLACES_CATALOG__PAGE_SIZE",
		"MYPLACES_BREAKER__OPEN_TIMEOUT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "myplaces-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}

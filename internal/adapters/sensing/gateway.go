// Package sensing resolves the context signals of a scoring pass: clock,
// device position and speed, weather and environment class.
//
// Every accessor degrades to a fixed default when its source is unavailable
// and never fails. Network lookups are bounded by a per-lookup timeout and
// are not retried.
package sensing

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/internal/domain/openinghours"
	"github.com/okian/myplaces/pkg/logger"
	"github.com/okian/myplaces/pkg/metrics"
)

const (
	defaultLookupTimeout = 5 * time.Second
	msToKmh              = 3.6
)

// Option applies a configuration option to the Gateway.
type Option func(*Gateway)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLocation sets the time zone used for wall-clock signals.
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithLookupTimeout bounds each network lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.lookupTimeout = d
		}
	}
}

// WithWeather sets the weather provider.
func WithWeather(p WeatherProvider) Option {
	return func(g *Gateway) {
		g.weather = p
	}
}

// WithEnvironment sets the environment provider.
func WithEnvironment(p EnvironmentProvider) Option {
	return func(g *Gateway) {
		g.environment = p
	}
}

// Gateway is the single read-only view of the device context.
type Gateway struct {
	locator       *DeviceLocator
	weather       WeatherProvider
	environment   EnvironmentProvider
	now           func() time.Time
	loc           *time.Location
	lookupTimeout time.Duration
}

// NewGateway creates a gateway over locator. Without providers the network
// signals always report their defaults.
func NewGateway(locator *DeviceLocator, opts ...Option) *Gateway {
	g := &Gateway{
		locator:       locator,
		now:           time.Now,
		loc:           time.Local,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.locator == nil {
		g.locator = NewDeviceLocator()
	}
	return g
}

// Now returns the current instant in the configured zone.
func (g *Gateway) Now() time.Time {
	return g.now().In(g.loc)
}

// CurrentHourOfDay returns 0..23.
func (g *Gateway) CurrentHourOfDay() int {
	return g.Now().Hour()
}

// CurrentWeekday returns 0..6 with Monday=0.
func (g *Gateway) CurrentWeekday() int {
	return openinghours.WeekdayIndex(g.Now())
}

// CurrentSpeedKmh returns the device speed, or 0 when unavailable.
func (g *Gateway) CurrentSpeedKmh() float64 {
	fix, ok := g.locator.Fix()
	if !ok || fix.SpeedMps < 0 {
		return 0
	}
	return fix.SpeedMps * msToKmh
}

// CurrentPosition returns the last device position.
func (g *Gateway) CurrentPosition() (model.Point, bool) {
	fix, ok := g.locator.Fix()
	if !ok {
		return model.Point{}, false
	}
	return fix.Position, true
}

// CurrentWeatherCode returns the weather category at the device position.
func (g *Gateway) CurrentWeatherCode(ctx context.Context) float64 {
	pos, ok := g.CurrentPosition()
	if !ok {
		g.fallback(ctx, "weather", ErrNoPosition)
		return WeatherCloudy
	}

	ctx, cancel := context.WithTimeout(ctx, g.lookupTimeout)
	defer cancel()

	if g.weather == nil {
		return WeatherCloudy
	}
	code, err := g.weather.WeatherCode(ctx, pos)
	if err != nil {
		g.fallback(ctx, "weather", err)
		return WeatherCloudy
	}
	return WeatherCategory(code)
}

// CurrentEnvironmentClass returns the environment class at the device
// position.
func (g *Gateway) CurrentEnvironmentClass(ctx context.Context) float64 {
	pos, ok := g.CurrentPosition()
	if !ok {
		g.fallback(ctx, "environment", ErrNoPosition)
		return EnvironmentIntermediate
	}

	ctx, cancel := context.WithTimeout(ctx, g.lookupTimeout)
	defer cancel()

	if g.environment == nil {
		return EnvironmentIntermediate
	}
	label, err := g.environment.EnvironmentLabel(ctx, pos)
	if err != nil {
		g.fallback(ctx, "environment", err)
		return EnvironmentIntermediate
	}
	return EnvironmentClass(label)
}

func (g *Gateway) fallback(ctx context.Context, signal string, err error) {
	metrics.RecordSensingFallback(signal)
	logger.Get().Warn(ctx, "context signal unavailable, using default",
		logger.String("signal", signal),
		logger.Error(err))
}

// Snapshot is every signal of one pass, resolved once.
type Snapshot struct {
	Now         time.Time
	Hour        int
	Weekday     int
	Position    *model.Point
	SpeedKmh    float64
	Weather     float64
	Environment float64
}

// Snapshot resolves all signals, running the network lookups concurrently.
func (g *Gateway) Snapshot(ctx context.Context) Snapshot {
	now := g.Now()
	s := Snapshot{
		Now:      now,
		Hour:     now.Hour(),
		Weekday:  openinghours.WeekdayIndex(now),
		SpeedKmh: g.CurrentSpeedKmh(),
	}
	if pos, ok := g.CurrentPosition(); ok {
		s.Position = &pos
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.Weather = g.CurrentWeatherCode(egctx)
		return nil
	})
	eg.Go(func() error {
		s.Environment = g.CurrentEnvironmentClass(egctx)
		return nil
	})
	_ = eg.Wait() // lookups degrade instead of failing

	return s
}

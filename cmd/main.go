package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/myplaces/internal/adapters/arcgis"
	"github.com/okian/myplaces/internal/adapters/breaker"
	"github.com/okian/myplaces/internal/adapters/catalog"
	"github.com/okian/myplaces/internal/adapters/http/api"
	"github.com/okian/myplaces/internal/adapters/http/swagger"
	"github.com/okian/myplaces/internal/adapters/repository"
	"github.com/okian/myplaces/internal/adapters/sensing"
	app "github.com/okian/myplaces/internal/app"
	"github.com/okian/myplaces/internal/config"
	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/internal/domain/scoring"
	"github.com/okian/myplaces/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if cfg.LogFormat != "text" {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
			return
		}
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "myplaces stopped with an error", logger.Error(err))
	}
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.svc.RefreshCatalog(ctx); err != nil && !errors.Is(err, app.ErrNoCatalog) {
		log.Warn(ctx, "initial catalog refresh failed; starting with the synced universe", logger.Error(err))
	}

	a.svc.Start(ctx)
	defer a.svc.Stop()

	go startServiceMetricsUpdater(ctx, a.svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.routes(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// application holds the wired components of one process.
type application struct {
	store   *repository.Ledger
	locator *sensing.DeviceLocator
	svc     *app.Service
}

// build wires every component from cfg.
func build(ctx context.Context, cfg *config.Config) (*application, error) {
	loc, err := cfg.Zone()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	store, err := repository.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := ensureProfile(ctx, store, cfg.Profile); err != nil {
		_ = store.Close()
		return nil, err
	}

	locator := sensing.NewDeviceLocator()
	if cfg.Location.Lat != nil && cfg.Location.Lon != nil {
		locator.Update(sensing.Fix{
			Position: model.Point{Lon: *cfg.Location.Lon, Lat: *cfg.Location.Lat},
			SpeedMps: -1,
			At:       time.Now(),
		})
	}

	breakerOpts := []breaker.Option{
		breaker.WithFailureThreshold(cfg.Breaker.FailureThreshold),
		breaker.WithOpenTimeout(cfg.Breaker.OpenTimeout),
	}

	gatewayOpts := []sensing.Option{
		sensing.WithLocation(loc),
		sensing.WithLookupTimeout(cfg.LookupTimeout),
	}
	if cfg.Weather.URL != "" {
		gatewayOpts = append(gatewayOpts, sensing.WithWeather(
			sensing.NewOpenMeteoClient(cfg.Weather.URL, breaker.New("weather", breakerOpts...))))
	}
	if cfg.Environment.URL != "" {
		client := arcgis.NewClient(arcgis.WithBreaker(breaker.New("environment", breakerOpts...)))
		gatewayOpts = append(gatewayOpts, sensing.WithEnvironment(sensing.NewEnvironmentClient(client, cfg.Environment.URL)))
	}
	gateway := sensing.NewGateway(locator, gatewayOpts...)

	scorerOpts := []scoring.Option{scoring.WithBias(cfg.Model.Bias)}
	if cfg.Model.Weights != nil {
		scorerOpts = append(scorerOpts, scoring.WithWeights(cfg.Model.Weights))
	}
	scorer, err := scoring.NewLogisticScorer(scorerOpts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: model: %w", config.ErrInvalidConfig, err)
	}

	svcOpts := []app.Option{
		app.WithLogger(logger.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithThreshold(cfg.RelevanceThreshold),
		app.WithInterval(cfg.SessionInterval),
	}
	if src := catalogSource(cfg.Catalog, breakerOpts); src != nil {
		svcOpts = append(svcOpts, app.WithCatalog(src))
	}

	svc := app.New(store, gateway, scorer, scoring.NewRuleClassifier(), svcOpts...)
	return &application{store: store, locator: locator, svc: svc}, nil
}

func catalogSource(c config.CatalogConfig, breakerOpts []breaker.Option) catalog.Source {
	switch c.Kind {
	case config.CatalogFile:
		return catalog.NewFileSource(c.Path)
	case config.CatalogFeatureService:
		client := arcgis.NewClient(arcgis.WithBreaker(breaker.New("catalog", breakerOpts...)))
		return catalog.NewFeatureServiceSource(client, c.URL, c.PageSize)
	default:
		return nil
	}
}

// ensureProfile creates the configured local user unless one exists.
func ensureProfile(ctx context.Context, store repository.Store, p config.ProfileConfig) error {
	if p.Name == "" {
		return nil
	}
	if _, ok := store.CurrentUser(ctx); ok {
		return nil
	}
	_, err := store.CreateUser(ctx, p.Name, p.Email)
	if err != nil && !errors.Is(err, repository.ErrProfileExists) {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// routes registers the API docs and the business API on a fresh mux.
func (a *application) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(a.svc, a.locator).Register(ctx, mux)
	return mux
}

func (a *application) close() {
	if err := a.store.Close(); err != nil {
		logger.Get().Warn(context.Background(), "ledger close failed", logger.Error(err))
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the universe and worker gauges.
			_ = svc.GetStats()
		}
	}
}

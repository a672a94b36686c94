package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/m-mukund/fpl-optimizer/internal/adapters/cache"
	"github.com/m-mukund/fpl-optimizer/internal/adapters/feed"
	"github.com/m-mukund/fpl-optimizer/internal/adapters/http/api"
	"github.com/m-mukund/fpl-optimizer/internal/adapters/http/site"
	"github.com/m-mukund/fpl-optimizer/internal/adapters/http/swagger"
	"github.com/m-mukund/fpl-optimizer/internal/adapters/repository"
	service "github.com/m-mukund/fpl-optimizer/internal/app"
	"github.com/m-mukund/fpl-optimizer/internal/config"
	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/internal/domain/resultcache"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
	"github.com/m-mukund/fpl-optimizer/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 15 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	cacheMemory               = "memory"
	cacheRedis                = "redis"
)

var errUnknownCache = errors.New("unknown cache driver")

func main() {
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to flush logs: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run wires every component from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, time.Duration(cfg.SystemMetricsIntervalSeconds)*time.Second)
	go startServiceMetricsUpdater(ctx, svc)

	mux, err := newMux(ctx, cfg, svc, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
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
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildService opens the store, cache backend and schedule feed and starts the service.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	positions, err := cfg.Positions()
	if err != nil {
		return nil, err
	}
	limits, err := cfg.Limits()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	backend, err := openCache(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	schedule := feed.New(
		feed.WithURL(cfg.ScheduleURL),
		feed.WithTimeout(time.Duration(cfg.ScheduleTimeoutMS)*time.Millisecond),
		feed.WithRateLimit(cfg.ScheduleRatePerSec, 1),
		feed.WithRetries(cfg.ScheduleMaxRetries, feed.DefaultRetryWait),
		feed.WithCacheTTL(time.Duration(cfg.ScheduleCacheSeconds)*time.Second),
		feed.WithLogger(log.Named("feed")),
	)

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithCache(backend),
		service.WithFeed(schedule),
		service.WithTeamMaxBudget(cfg.TeamMaxBudget),
		service.WithTotalBudget(cfg.TotalBudget),
		service.WithAssemblyPositions(positions),
		service.WithPositionLimits(limits),
		service.WithSearchLimit(cfg.AutocompleteLimit),
		service.WithCacheTTL(cfg.CacheTTL()),
		service.WithCacheKeyPrefix(cfg.CacheKeyPrefix),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start service: %w", err)
	}
	return svc, nil
}

// openStore opens the configured projection store and seeds it when a seed file is set.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL,
		repository.WithLogger(log.Named("store")),
		repository.WithMaxConns(int32(cfg.DatabaseMaxConns)), //nolint:gosec // validated positive and small
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.SeedFile == "" {
		return store, nil
	}

	lite, ok := store.(*repository.SQLiteStore)
	if !ok {
		log.Warn(ctx, "seed_file ignored for non-sqlite store", logger.String("driver", cfg.DatabaseDriver))
		return store, nil
	}
	rows, err := readSeed(cfg.SeedFile)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := lite.Load(ctx, rows...); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}
	log.Info(ctx, "store seeded", logger.String("file", cfg.SeedFile), logger.Int("rows", len(rows)))
	return store, nil
}

// readSeed decodes a JSON array of projections.
func readSeed(path string) ([]model.PlayerProjection, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var rows []model.PlayerProjection
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return rows, nil
}

// openCache returns the best-team cache backend selected by cfg.CacheDriver.
func openCache(ctx context.Context, cfg *config.Config) (resultcache.Backend, error) {
	switch strings.ToLower(cfg.CacheDriver) {
	case cacheMemory:
		return cache.NewMemoryBackend(), nil
	case cacheRedis:
		backend, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("dial redis: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCache, cfg.CacheDriver)
	}
}

// newMux registers the API, docs and front-end routes.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	if err := swagger.Register(ctx, mux); err != nil {
		return nil, fmt.Errorf("register docs: %w", err)
	}

	apiServer := api.NewServer(svc, svc,
		api.WithAllowedOrigins(cfg.AllowedOrigins()),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)

	site.Register(ctx, mux)
	return mux, nil
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater mirrors service stats into gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if gw, ok := stats["lastGameweek"].(int64); ok && gw > 0 {
		metrics.UpdateActiveGameweek(int(gw))
	}
}

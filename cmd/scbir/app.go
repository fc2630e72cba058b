package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/config"
	"github.com/kailas-cloud/scbir/internal/db"
	dbRedis "github.com/kailas-cloud/scbir/internal/db/redis"
	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/scbir/internal/logger"
	"github.com/kailas-cloud/scbir/internal/metrics"
	"github.com/kailas-cloud/scbir/internal/preview"
	"github.com/kailas-cloud/scbir/internal/repository/searchcache"
	"github.com/kailas-cloud/scbir/internal/repository/thumbcache"
	"github.com/kailas-cloud/scbir/internal/transport/backend"
	"github.com/kailas-cloud/scbir/internal/transport/mock"
	"github.com/kailas-cloud/scbir/internal/usecase/health"
	"github.com/kailas-cloud/scbir/internal/usecase/readiness"
	"github.com/kailas-cloud/scbir/internal/usecase/upload"
	"github.com/kailas-cloud/scbir/internal/usecase/viewer"
	"github.com/kailas-cloud/scbir/internal/usecase/workbench"
)

// backendAPI is everything the CLI needs from a search backend.
// Implemented by backend.Client and mock.Backend.
type backendAPI interface {
	Search(ctx context.Context, b blob.Blob) (result.Set, error)
	SystemStatus(ctx context.Context) (domain.SystemStatus, error)
	Health(ctx context.Context) (string, error)
	Image(ctx context.Context, fileID string) ([]byte, string, error)
	Preprocess(ctx context.Context, b blob.Blob) (domain.Preprocessed, error)
	Features(ctx context.Context, b blob.Blob) (domain.Features, error)
}

type imageFetcher interface {
	Image(ctx context.Context, fileID string) ([]byte, string, error)
}

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	backend  backendAPI
	images   imageFetcher
	store    db.Store
	previews *preview.Registry
	prober   *readiness.Service
	health   *health.Service
	bench    *workbench.Workbench
}

// loadApp reads the config selected by --env/--config and composes the app.
func loadApp(cmd *cobra.Command) (*app, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}
	path, _ := cmd.Flags().GetString("config")
	asJSON, _ := cmd.Flags().GetBool("json")

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, err
	}

	var logger *zap.Logger
	if asJSON {
		logger, err = logpkg.NewJSONLogger(cmd.ErrOrStderr(), cfg.Logging.Level)
	} else {
		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return buildApp(cmd.Context(), cfg, logger)
}

// buildApp is the composition root: backend, caches, session controller, viewer.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterWorkbenchMetrics()

	a := &app{cfg: cfg, logger: logger, previews: preview.NewRegistry()}

	if cfg.Backend.Mock {
		a.backend = mock.New(
			mock.WithDelay(time.Duration(cfg.Backend.MockDelayMS)*time.Millisecond),
			mock.WithResults(cfg.Backend.MockResults),
		)
		logger.Info("Using mock backend", zap.Int("results", cfg.Backend.MockResults))
	} else {
		a.backend = backend.NewClient(&backend.Config{
			BaseURL:          cfg.Backend.BaseURL,
			Timeout:          time.Duration(cfg.Backend.TimeoutSec) * time.Second,
			NotIndexedStatus: cfg.Backend.NotIndexedStatus,
			APIKey:           cfg.Backend.APIKey,
			Logger:           logger,
		})
		logger.Debug("Using backend", zap.String("base_url", cfg.Backend.BaseURL))
	}

	var searcher upload.Searcher = a.backend
	a.images = a.backend

	if cfg.Cache.Enabled {
		store, err := openStore(ctx, cfg.Cache)
		if err != nil {
			// caching is optional; searches go straight to the backend
			logger.Warn("Cache unavailable, continuing without it", zap.Error(err))
		} else {
			a.store = store
			scope := backendScope(cfg.Backend)
			searcher = searchcache.New(searcher, store, cfg.Cache.KeyPrefix,
				time.Duration(cfg.Cache.SearchTTLSec)*time.Second, metrics.CacheTotal, logger).
				WithScope(scope)
			a.images = thumbcache.New(a.backend, store, cfg.Cache.KeyPrefix,
				time.Duration(cfg.Cache.ThumbnailTTLSec)*time.Second, metrics.CacheTotal, logger).
				WithScope(scope)
			logger.Info("Connected to cache",
				zap.String("driver", cfg.Cache.Driver),
				zap.Strings("addrs", cfg.Cache.Addrs),
			)
		}
	}

	// Pass nil interface (not typed nil pointer) when there is no cache.
	var pinger health.CachePinger
	if a.store != nil {
		pinger = a.store
	}
	a.health = health.New(a.backend, pinger)
	a.prober = readiness.New(a.backend, time.Duration(cfg.Backend.TimeoutSec)*time.Second, logger)

	ctrl := upload.NewController(searcher, a.previews,
		upload.WithAutoSearch(cfg.UI.AutoSearchEnabled()),
		upload.WithMessages(upload.NewMessages(cfg.UI.Locale)),
		upload.WithLogger(logger),
	)
	a.bench = workbench.New(ctrl, cfg.UI.Capacity, viewer.Linked(cfg.UI.LinkedZoom))

	return a, nil
}

// backendScope names the backend whose answers a shared cache holds.
func backendScope(cfg config.BackendConfig) string {
	if cfg.Mock {
		return "mock"
	}
	return cfg.BaseURL
}

func openStore(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	// Valkey and Redis speak the same KV commands; the driver only labels the deployment.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Password:   cfg.Password,
		Standalone: cfg.Standalone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	return store, nil
}

// probe runs the startup readiness check and records it on the session.
func (a *app) probe(ctx context.Context) readiness.Report {
	report := a.prober.Probe(ctx)
	a.bench.Controller().ApplyReadiness(report)
	if !report.Ready() {
		a.logger.Warn("Backend not ready", zap.String("state", string(report.State)), zap.Error(report.Err))
	}
	return report
}

func (a *app) messages() upload.Messages {
	return a.bench.Controller().Messages()
}

// Close tears down the session and releases the cache connection.
func (a *app) Close() {
	a.bench.Close()
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// lazyApp builds the app on first use so --help and --version need no config.
type lazyApp struct {
	build appLoader
	a     *app
}

func (l *lazyApp) get(cmd *cobra.Command) (*app, error) {
	if l.a != nil {
		return l.a, nil
	}
	a, err := l.build(cmd)
	if err != nil {
		return nil, err
	}
	l.a = a
	return a, nil
}

func (l *lazyApp) close() {
	if l.a != nil {
		l.a.Close()
		l.a = nil
	}
}

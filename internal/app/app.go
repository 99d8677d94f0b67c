// Package app initializes and holds the long-lived services of the booth
// pipeline, acting as the dependency injection container for the CLI and
// the HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/cache"
	"github.com/kaykas/booth-beacon-app-sub000/internal/config"
	"github.com/kaykas/booth-beacon-app-sub000/internal/extract"
	"github.com/kaykas/booth-beacon-app-sub000/internal/fetch"
	"github.com/kaykas/booth-beacon-app-sub000/internal/ingest"
	"github.com/kaykas/booth-beacon-app-sub000/internal/logging"
	"github.com/kaykas/booth-beacon-app-sub000/internal/metrics"
	"github.com/kaykas/booth-beacon-app-sub000/internal/pipeline"
	"github.com/kaykas/booth-beacon-app-sub000/internal/progress"
	"github.com/kaykas/booth-beacon-app-sub000/internal/progress/sinks"
	"github.com/kaykas/booth-beacon-app-sub000/internal/retry"
	"github.com/kaykas/booth-beacon-app-sub000/internal/scheduler"
	"github.com/kaykas/booth-beacon-app-sub000/internal/snapshot"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store/memory"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store/postgres"
)

// App holds the shared, long-lived services. It is initialized once at
// startup and passed to the commands and the HTTP server.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	sources  store.SourceRepository
	booths   store.BoothRepository
	hub      *progress.Hub

	closers []func(context.Context) error
}

// New builds every service the configuration asks for. It fails fast: a
// backend that cannot be reached at startup is a startup error, not a
// mid-run surprise.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	sources, booths, metricsRepo, err := a.buildStores(ctx)
	if err != nil {
		return nil, err
	}
	a.sources = sources
	a.booths = booths

	fetcher, err := a.buildFetcher()
	if err != nil {
		return nil, err
	}
	pageCache, err := a.buildCache(ctx)
	if err != nil {
		return nil, err
	}
	snapshots, err := a.buildSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	a.hub = a.buildHub(ctx)

	var llm *extract.LLMClient
	if cfg.LLM.Endpoint != "" {
		llm, err = extract.NewLLMClient(extract.LLMClientConfig{
			Endpoint: cfg.LLM.Endpoint,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("build llm client: %w", err)
		}
	}

	upserter, err := ingest.NewUpserter(booths, logger)
	if err != nil {
		return nil, err
	}

	budget, margin := cfg.Budget()
	sched, err := scheduler.New(scheduler.Deps{
		Fetcher:   fetcher,
		Resolver:  fetch.NewDomainResolver(cfg.DefaultTuning(), cfg.Domains),
		Router:    extract.DefaultRouter(logger, llm),
		Sources:   sources,
		Metrics:   metricsRepo,
		Upserter:  upserter,
		Cache:     pageCache,
		Snapshots: snapshots,
		Emitter:   a.hub,
		Logger:    logger,
		Retry: retry.NewPolicy(
			cfg.Crawler.MaxAttempts,
			time.Duration(cfg.Crawler.RetryBaseMs)*time.Millisecond,
			time.Duration(cfg.Crawler.RetryMaxMs)*time.Millisecond,
		),
	}, scheduler.Config{ExecutionBudget: budget, SafetyMargin: margin})
	if err != nil {
		return nil, err
	}

	a.pipeline, err = pipeline.New(sched, sources, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("services initialized",
		zap.String("fetch_mode", cfg.Fetch.Mode),
		zap.String("cache", cfg.Cache.Provider),
		zap.String("snapshots", cfg.Snapshots.Provider),
		zap.Bool("postgres", cfg.DB.DSN != ""),
		zap.Bool("llm", llm != nil),
	)
	return a, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Pipeline returns the crawl pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Sources exposes the source registry.
func (a *App) Sources() store.SourceRepository { return a.sources }

// Booths exposes the booth store.
func (a *App) Booths() store.BoothRepository { return a.booths }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// SeedSources writes the configured source list into the registry,
// preserving resumption state on rows that already exist.
func (a *App) SeedSources(ctx context.Context) (int, error) {
	for _, seed := range a.cfg.Sources {
		src := booth.Source{
			ID:                 seed.ID,
			Name:               seed.Name,
			URL:                seed.URL,
			ExtractorType:      seed.ExtractorType,
			Enabled:            seed.Enabled,
			Priority:           seed.Priority,
			CrawlFrequencyDays: seed.CrawlFrequencyDays,
		}
		if err := a.sources.Seed(ctx, src); err != nil {
			return 0, err
		}
	}
	return len(a.cfg.Sources), nil
}

// Close shuts down the progress hub and every connected backend.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			firstErr = err
		}
	}
	for _, closeFn := range a.closers {
		if err := closeFn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.logger.Sync()
	return firstErr
}

func (a *App) buildStores(ctx context.Context) (store.SourceRepository, store.BoothRepository, store.MetricRepository, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Info("no database configured, using in-memory stores")
		return memory.NewSourceRepository(), memory.NewBoothRepository(), memory.NewMetricRepository(), nil
	}
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: int32(a.cfg.DB.MaxOpenConns),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		pool.Close()
		return nil
	})
	return postgres.NewSourceRepository(pool),
		postgres.NewBoothRepository(pool),
		postgres.NewMetricRepository(pool), nil
}

func (a *App) buildFetcher() (fetch.Service, error) {
	switch a.cfg.Fetch.Mode {
	case config.FetchModeService:
		return fetch.NewRenderClient(fetch.RenderClientConfig{
			Endpoint: a.cfg.Fetch.Endpoint,
			APIKey:   a.cfg.Fetch.APIKey,
			Timeout:  time.Duration(a.cfg.Fetch.TimeoutSeconds) * time.Second,
		}, a.logger)
	case config.FetchModeLocal:
		return fetch.NewCollyFetcher(fetch.CollyConfig{
			UserAgent: a.cfg.Fetch.UserAgent,
			PageParam: a.cfg.Fetch.PageParam,
		}, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", a.cfg.Fetch.Mode)
	}
}

func (a *App) buildCache(ctx context.Context) (cache.Service, error) {
	switch a.cfg.Cache.Provider {
	case config.CacheRedis:
		redisCache, err := cache.NewRedis(ctx, a.cfg.Cache.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			return redisCache.Close()
		})
		return redisCache, nil
	default:
		return cache.NewMemory(), nil
	}
}

func (a *App) buildSnapshots(ctx context.Context) (snapshot.Store, error) {
	switch a.cfg.Snapshots.Provider {
	case config.SnapshotMemory:
		return snapshot.NewMemory(), nil
	case config.SnapshotLocal:
		return snapshot.NewLocal(snapshot.LocalConfig{BaseDir: a.cfg.Snapshots.BaseDir})
	case config.SnapshotGCS:
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("build storage client: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			return client.Close()
		})
		return snapshot.NewGCS(client, snapshot.GCSConfig{Bucket: a.cfg.Snapshots.Bucket})
	default:
		return snapshot.Nop{}, nil
	}
}

func (a *App) buildHub(ctx context.Context) *progress.Hub {
	hubSinks := []progress.Sink{sinks.NewLogSink(a.logger)}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		// Collectors already registered by an earlier App in this process.
		a.logger.Warn("prometheus progress sink unavailable", zap.Error(err))
	} else {
		hubSinks = append(hubSinks, promSink)
	}

	if a.cfg.PubSub.ProjectID != "" && a.cfg.PubSub.TopicName != "" {
		pubsubSink, err := sinks.NewPubSubSink(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			a.logger.Warn("pubsub progress sink unavailable", zap.Error(err))
		} else {
			hubSinks = append(hubSinks, pubsubSink)
		}
	}

	return progress.NewHub(progress.HubConfig{Logger: a.logger}, hubSinks...)
}

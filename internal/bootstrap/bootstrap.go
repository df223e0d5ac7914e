// Package bootstrap assembles the knowledge base, consent chain and
// evaluation services from configuration for the executables.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/config"
	"github.com/peptide-safety-engine/internal/consent"
	"github.com/peptide-safety-engine/internal/database"
	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/knowledge"
	"github.com/peptide-safety-engine/internal/service"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck = func(ctx context.Context) error

// Components is everything an entry point serves.
type Components struct {
	Catalog *knowledge.Holder
	Safety  *service.SafetyEngine
	Quality *service.QualityScorer
	Monitor *service.MonitoringAggregator

	// ConsentStore and ConsentCache are nil when no store is configured.
	ConsentStore consent.Store
	ConsentCache *consent.CachedProvider

	HealthChecks map[string]HealthCheck

	closers []func() error
}

// Close releases every opened resource in reverse order.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Components) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// Build wires the full deployment: migrations and the connection pool when
// PostgreSQL is in use, the configured catalog source with optional
// periodic reloads, and the consent store behind a circuit breaker and cache.
// Reload goroutines stop when ctx is done.
func Build(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) (*Components, error) {
	cfg := configManager.GetConfig()
	c := &Components{HealthChecks: map[string]HealthCheck{}}

	built := false
	defer func() {
		if !built {
			c.Close()
		}
	}()

	var db *database.DB
	if configManager.UsesPostgres() {
		if err := migrate(ctx, configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger); err != nil {
			return nil, err
		}

		var err error
		db, err = database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		c.onClose(func() error { db.Close(); return nil })
		c.HealthChecks["database"] = db.Health
	}

	loader, err := catalogLoader(cfg.Knowledge, db)
	if err != nil {
		return nil, err
	}
	if c.Catalog, err = loadCatalog(ctx, loader, logger); err != nil {
		return nil, err
	}
	if cfg.Knowledge.ReloadInterval > 0 && loader != nil {
		go c.Catalog.Watch(ctx, cfg.Knowledge.ReloadInterval, loader)
	}

	store, err := openConsentStore(cfg.Consent, configManager.GetDatabaseURL())
	if err != nil {
		return nil, err
	}

	var provider domain.ConsentStatusProvider = consent.PendingProvider{}
	if store != nil {
		c.onClose(store.Close)
		c.ConsentStore = store

		var redisClient *redis.Client
		if url := configManager.GetRedisConnectionString(); url != "" {
			redisClient, err = consent.NewRedisClient(ctx, url, cfg.Cache)
			if err != nil {
				return nil, err
			}
			c.onClose(redisClient.Close)
			c.HealthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}

		breaker := consent.NewBreakerProvider(store, consent.BreakerConfigFrom(cfg.Consent), logger)
		c.ConsentCache = consent.NewCachedProvider(breaker, redisClient, consent.CacheConfig{
			TTL:      cfg.Cache.DefaultTTL,
			MaxItems: cfg.Cache.MaxItems,
		}, logger)
		provider = c.ConsentCache
	}

	policy, err := service.SafetyPolicyFromConfig(cfg.Safety)
	if err != nil {
		return nil, err
	}
	rubric, err := service.QualityRubricFromConfig(cfg.Quality)
	if err != nil {
		return nil, err
	}
	if err := c.buildServices(logger, provider, rubric, service.WithPolicy(policy)); err != nil {
		return nil, err
	}

	built = true
	return c, nil
}

// BuildLite wires the standalone deployment: embedded or file catalog and
// a SQLite consent store in the data directory, with an in-process cache.
func BuildLite(ctx context.Context, cfg *config.LiteConfig, logger *logrus.Logger) (*Components, error) {
	c := &Components{HealthChecks: map[string]HealthCheck{}}

	var loader knowledge.Loader
	if cfg.KnowledgeFile != "" {
		loader = knowledge.FileLoader(cfg.KnowledgeFile)
	}
	holder, err := loadCatalog(ctx, loader, logger)
	if err != nil {
		return nil, err
	}
	c.Catalog = holder

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	store, err := consent.NewSQLiteStore(cfg.ConsentDBPath())
	if err != nil {
		return nil, err
	}
	c.onClose(store.Close)
	c.ConsentStore = store
	c.ConsentCache = consent.NewCachedProvider(store, nil, consent.CacheConfig{
		TTL:      cfg.ConsentCacheTTL,
		MaxItems: cfg.ConsentCacheMaxItems,
	}, logger)

	if err := c.buildServices(logger, c.ConsentCache, service.DefaultQualityRubric()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) buildServices(logger *logrus.Logger, provider domain.ConsentStatusProvider, rubric service.QualityRubric, opts ...service.SafetyEngineOption) error {
	var err error
	if c.Safety, err = service.NewSafetyEngine(logger, c.Catalog, provider, opts...); err != nil {
		return err
	}
	if c.Quality, err = service.NewQualityScorer(logger, rubric); err != nil {
		return err
	}
	c.Monitor, err = service.NewMonitoringAggregator(logger, service.DefaultMonitoringBenchmarks())
	return err
}

func migrate(ctx context.Context, databaseURL, migrationsPath string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(databaseURL, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up(ctx)
}

// catalogLoader returns the loader for the configured source, or nil for
// the embedded catalog.
func catalogLoader(cfg domain.KnowledgeConfig, db *database.DB) (knowledge.Loader, error) {
	switch cfg.Source {
	case "embedded":
		return nil, nil
	case "file":
		return knowledge.FileLoader(cfg.File), nil
	case "postgres":
		if db == nil {
			return nil, errors.New("postgres knowledge source requires a database connection")
		}
		source, err := knowledge.NewPostgresSource(db.Pool)
		if err != nil {
			return nil, err
		}
		return source.Loader(), nil
	default:
		return nil, fmt.Errorf("unsupported knowledge source: %q", cfg.Source)
	}
}

func loadCatalog(ctx context.Context, loader knowledge.Loader, logger *logrus.Logger) (*knowledge.Holder, error) {
	var catalog *knowledge.Catalog
	var err error
	if loader == nil {
		catalog, err = knowledge.Default()
	} else {
		catalog, err = loader(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading compound catalog: %w", err)
	}
	return knowledge.NewHolder(catalog, logger)
}

func openConsentStore(cfg domain.ConsentConfig, databaseURL string) (consent.Store, error) {
	switch cfg.Store {
	case "none":
		return nil, nil
	case "sqlite":
		return consent.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return consent.NewPostgresStoreFromURL(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported consent store: %q", cfg.Store)
	}
}

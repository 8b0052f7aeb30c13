package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trailaccess/trailguide/internal/handlers"
	"github.com/trailaccess/trailguide/internal/platform/config"
	pfirestore "github.com/trailaccess/trailguide/internal/platform/firestore"
	"github.com/trailaccess/trailguide/internal/platform/observability"
	"github.com/trailaccess/trailguide/internal/platform/retry"
	"github.com/trailaccess/trailguide/internal/repositories"
	firestoreRepo "github.com/trailaccess/trailguide/internal/repositories/firestore"
	"github.com/trailaccess/trailguide/internal/repositories/localstore"
	"github.com/trailaccess/trailguide/internal/services"
)

// Container wires repositories and the client session for runtime use.
type Container struct {
	Config  config.Config
	Logger  *zap.Logger
	Store   repositories.KeyValueStore
	Trails  repositories.TrailGuideRepository
	Session *services.Session
	Health  repositories.HealthRepository

	provider  *pfirestore.Provider
	ownsStore bool
}

// Option customises container construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
	store  repositories.KeyValueStore
	trails repositories.TrailGuideRepository
}

// WithLogger sets the base logger. A no-op logger is used otherwise.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithKeyValueStore supplies the local store instead of opening the SQLite database named
// in the configuration. The caller keeps ownership of the store.
func WithKeyValueStore(store repositories.KeyValueStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithTrailRepository supplies the remote store instead of dialling Firestore.
func WithTrailRepository(repo repositories.TrailGuideRepository) Option {
	return func(o *options) {
		o.trails = repo
	}
}

// NewContainer constructs the runtime dependencies.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{Config: cfg, Logger: logger}

	c.Store = o.store
	if c.Store == nil {
		store, err := localstore.OpenSQLite(ctx, cfg.LocalStore.Path)
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		c.Store = store
		c.ownsStore = true
	}

	c.Trails = o.trails
	if c.Trails == nil {
		c.provider = pfirestore.NewProvider(cfg.Firestore, pfirestore.WithDialTimeout(cfg.Firestore.DialTimeout))
		repo, err := firestoreRepo.NewTrailGuideRepository(c.provider)
		if err != nil {
			c.closeQuietly()
			return nil, fmt.Errorf("build trail guide repository: %w", err)
		}
		c.Trails = repo
	}

	snapshots, err := localstore.NewSnapshots(c.Store)
	if err != nil {
		c.closeQuietly()
		return nil, fmt.Errorf("build snapshots: %w", err)
	}

	fetcher, err := services.NewSourceFetcher(services.SourceFetcherDeps{
		Fresh:     c.Trails,
		Fallback:  snapshots,
		Snapshots: snapshots,
		Scheduler: retry.New(retry.WithLogger(logger.Named("retry"))),
		Logger:    logger,
	})
	if err != nil {
		c.closeQuietly()
		return nil, fmt.Errorf("build source fetcher: %w", err)
	}

	session, err := services.NewSession(services.SessionDeps{
		Config:  sessionConfig(cfg),
		Fetcher: fetcher,
		Mutator: c.Trails,
		Store:   c.Store,
		Logger:  logger.Named("session"),
	})
	if err != nil {
		c.closeQuietly()
		return nil, fmt.Errorf("build session: %w", err)
	}
	c.Session = session

	health, err := repositories.NewProbeHealthRepository(c.probes())
	if err != nil {
		c.closeQuietly()
		return nil, fmt.Errorf("build health repository: %w", err)
	}
	c.Health = health

	return c, nil
}

func sessionConfig(cfg config.Config) services.SessionConfig {
	// Each load phase keeps its own timeout and retry counter.
	policy := func(timeout time.Duration) services.FetchPolicy {
		return services.FetchPolicy{
			MaxRetries: cfg.Fetch.MaxRetries,
			BaseDelay:  cfg.Fetch.BaseDelay,
			Timeout:    timeout,
		}
	}
	return services.SessionConfig{
		UserID:        cfg.Session.UserID,
		UserEmail:     cfg.Session.UserEmail,
		BatchSize:     cfg.Browse.BatchSize,
		StatsPolicy:   policy(cfg.Fetch.StatsTimeout),
		CatalogPolicy: policy(cfg.Fetch.CatalogTimeout),
		UserPolicy:    policy(cfg.Fetch.UserTimeout),
	}
}

func (c *Container) probes() []repositories.Probe {
	probes := []repositories.Probe{
		{Name: "localstore", Check: c.Store.Ping},
	}
	if c.provider != nil {
		provider := c.provider
		probes = append(probes, repositories.Probe{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		})
	}
	return probes
}

// Router builds the HTTP surface over the container's session.
func (c *Container) Router() chi.Router {
	session := c.Session
	return handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(c.Logger.Named("http"), session.ID),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(c.Logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthRepository(c.Health),
			handlers.WithHealthSession(session.ID),
		)),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(session).Routes),
		handlers.WithTrailRoutes(handlers.NewTrailHandlers(session).Routes),
		handlers.WithMeRoutes(handlers.NewMeHandlers(session).Routes),
		handlers.WithAnnouncementRoutes(handlers.NewAnnouncementHandlers(session).Routes),
	)
}

// Close waits for session background work and releases the stores the container opened.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Session != nil {
		c.Session.Close()
	}
	var errs []error
	if c.provider != nil {
		if err := c.provider.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close firestore: %w", err))
		}
	}
	if c.ownsStore && c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close local store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) closeQuietly() {
	_ = c.Close(context.Background())
}

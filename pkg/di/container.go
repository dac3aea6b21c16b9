// Package di wires the entity registry, the concrete PlanetSide 2 types and
// the executor decorators into a single container.
package di

import (
	"log/slog"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/entitycache"
	"github.com/goliatone/go-census/internal/errs"
	"github.com/goliatone/go-census/ps2"
	"github.com/goliatone/go-census/responsecache"
)

type options struct {
	logger        *slog.Logger
	observer      census.Observer
	settings      *cache.Settings
	keySerializer cache.KeySerializer
	logRequests   bool
}

// Option configures NewContainer.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the schema drift observer. The default warns on the logger.
func WithObserver(observer census.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithSettings applies per-type cache overrides and, when the settings carry
// a response_cache block, enables the response cache.
func WithSettings(settings *cache.Settings) Option {
	return func(o *options) {
		o.settings = settings
	}
}

// WithKeySerializer replaces the response cache key serializer.
func WithKeySerializer(ks cache.KeySerializer) Option {
	return func(o *options) {
		if ks != nil {
			o.keySerializer = ks
		}
	}
}

// WithRequestLogging decorates the executor with debug logging of every
// dispatch. It is on by default.
func WithRequestLogging(enabled bool) Option {
	return func(o *options) {
		o.logRequests = enabled
	}
}

// Container holds the singletons of one client.
type Container struct {
	logger        *slog.Logger
	registry      *entitycache.Registry
	types         *ps2.Types
	executor      census.Executor
	responses     *responsecache.Executor
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	settings      cache.Settings
}

// NewContainer registers the PlanetSide 2 types and decorates base, the
// executor that reaches the API or a mirror.
func NewContainer(base census.Executor, opts ...Option) (*Container, error) {
	if base == nil {
		return nil, errs.Configuration("executor", "a base executor is required")
	}

	o := options{
		logger:        slog.Default(),
		keySerializer: cache.NewDefaultKeySerializer(),
		logRequests:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	regOpts := []entitycache.Option{entitycache.WithLogger(o.logger)}
	if o.observer != nil {
		regOpts = append(regOpts, entitycache.WithObserver(o.observer))
	}
	registry := entitycache.NewRegistry(regOpts...)

	types, err := ps2.Register(registry)
	if err != nil {
		return nil, err
	}

	c := &Container{
		logger:        o.logger,
		registry:      registry,
		types:         types,
		executor:      base,
		keySerializer: o.keySerializer,
	}

	if o.logRequests {
		c.executor = census.WithLogging(c.executor, o.logger)
	}

	if o.settings != nil {
		if err := o.settings.Validate(); err != nil {
			return nil, err
		}
		if err := registry.Apply(o.settings); err != nil {
			return nil, err
		}
		c.settings = *o.settings

		if o.settings.Response != nil {
			svc, err := cache.NewCacheService(*o.settings.Response)
			if err != nil {
				return nil, err
			}
			c.cacheService = svc
			c.responses = responsecache.New(c.executor, svc, c.keySerializer, responsecache.WithLogger(o.logger))
			c.executor = c.responses
		}
	}

	o.logger.Debug("census container ready",
		"types", registry.Types(),
		"response_cache", c.responses != nil,
	)
	return c, nil
}

// NewContainerFromFile loads YAML settings from path and builds a container.
func NewContainerFromFile(base census.Executor, path string, opts ...Option) (*Container, error) {
	settings, err := cache.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(base, append(opts, WithSettings(settings))...)
}

// Registry returns the entity registry.
func (c *Container) Registry() *entitycache.Registry {
	return c.registry
}

// Types returns the registered PlanetSide 2 types.
func (c *Container) Types() *ps2.Types {
	return c.types
}

// Executor returns the decorated executor every lookup should use.
func (c *Container) Executor() census.Executor {
	return c.executor
}

// ResponseCache returns the response cache, if settings enabled it.
func (c *Container) ResponseCache() (*responsecache.Executor, bool) {
	return c.responses, c.responses != nil
}

// CacheService returns the response cache backend, nil when disabled.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the key serializer used by the response cache.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Settings returns a copy of the applied settings.
func (c *Container) Settings() cache.Settings {
	return c.settings
}

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

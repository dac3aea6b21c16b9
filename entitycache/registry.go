package entitycache

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/internal/errs"
)

// NameCacheSuffix selects the name cache of a Named type in Configure and in
// settings files, e.g. "Faction.name".
const NameCacheSuffix = ".name"

// Registration is the type erased view of a registered entity type.
type Registration interface {
	TypeName() string
	Collection() string
	IDField() string
	// Stats reports the type's caches, id cache first.
	Stats() []cache.Stats
	// Clear drops every cached instance of the type.
	Clear()

	alter(target string, cfg cache.Config) error
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used by every registered type.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the payload drift observer. The default logs a warning.
func WithObserver(observer census.Observer) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// WithClock replaces time.Now in every cache created by the registry.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry owns the process wide caches of every registered entity type.
type Registry struct {
	types    *xsync.MapOf[string, Registration]
	logger   *slog.Logger
	observer census.Observer
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		types:  xsync.NewMapOf[string, Registration](),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.observer == nil {
		r.observer = census.LogObserver(r.logger)
	}
	return r
}

func (r *Registry) cacheOptions() []cache.Option {
	if r.now == nil {
		return nil
	}
	return []cache.Option{cache.WithClock(r.now)}
}

func (r *Registry) add(reg Registration) error {
	if _, loaded := r.types.LoadOrStore(reg.TypeName(), reg); loaded {
		return errs.Configuration("type", fmt.Sprintf("%s is already registered", reg.TypeName()))
	}
	r.logger.Debug("registered entity type",
		"type", reg.TypeName(),
		"collection", reg.Collection(),
	)
	return nil
}

// Lookup returns the registration of typeName.
func (r *Registry) Lookup(typeName string) (Registration, bool) {
	return r.types.Load(typeName)
}

// Types lists the registered type names in order.
func (r *Registry) Types() []string {
	names := make([]string, 0, r.types.Size())
	r.types.Range(func(name string, _ Registration) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// IDFields maps every registered collection to its id field.
func (r *Registry) IDFields() map[string]string {
	fields := make(map[string]string, r.types.Size())
	r.types.Range(func(_ string, reg Registration) bool {
		fields[reg.Collection()] = reg.IDField()
		return true
	})
	return fields
}

// Configure resizes and clears a type's cache. Use "<Type>.name" to target
// the name cache of a Named type. Sizes below one are rejected and leave the
// cache untouched.
func (r *Registry) Configure(target string, cfg cache.Config) error {
	typeName := strings.TrimSuffix(target, NameCacheSuffix)
	reg, ok := r.types.Load(typeName)
	if !ok {
		return errs.Configuration("type", fmt.Sprintf("%s is not registered", typeName))
	}
	return reg.alter(target, cfg)
}

// Apply configures every type override found in settings.
func (r *Registry) Apply(settings *cache.Settings) error {
	if settings == nil {
		return nil
	}
	targets := make([]string, 0, len(settings.Types))
	for target := range settings.Types {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		if err := r.Configure(target, settings.Types[target]); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports every cache, ordered by type name.
func (r *Registry) Stats() []cache.Stats {
	var stats []cache.Stats
	for _, name := range r.Types() {
		if reg, ok := r.types.Load(name); ok {
			stats = append(stats, reg.Stats()...)
		}
	}
	return stats
}

// Clear drops every cached instance of every type.
func (r *Registry) Clear() {
	r.types.Range(func(_ string, reg Registration) bool {
		reg.Clear()
		return true
	})
}

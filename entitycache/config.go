package entitycache

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/internal/errs"
	"github.com/goliatone/go-census/query"
)

// DefaultMaxResults caps every query a type dispatches unless configured otherwise.
const DefaultMaxResults = 5000

// DefaultLocale is used by name lookups that do not specify a locale.
const DefaultLocale = "en"

// Config is the registration record of an entity type.
type Config struct {
	// Cache bounds the id cache.
	Cache cache.Config `yaml:"cache"`
	// NameCache bounds the name cache of Named types. Nil reuses Cache.
	NameCache *cache.Config `yaml:"name_cache"`
	// MaxResults is the call site maximum applied to every dispatched query.
	MaxResults int `yaml:"max_results"`
}

// Validate rejects negative bounds.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.MaxResults, validation.Min(0)),
	)
	if err != nil {
		return errs.FromValidation(err, "invalid type configuration")
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.NameCache != nil {
		return c.NameCache.Validate()
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.NameCache == nil {
		nc := c.Cache
		c.NameCache = &nc
	}
	return c
}

// Search is a non cached bulk lookup.
type Search struct {
	Terms []query.Term
	// Limit defaults to 10.
	Limit        int
	Offset       int
	PromoteExact bool
	IgnoreCase   bool
}

const defaultSearchLimit = 10

func (s Search) query(collection string) *query.Query {
	q := query.New(collection).AddTerms(s.Terms...)
	limit := s.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return q.Limit(limit).
		Offset(s.Offset).
		ExactMatchFirst(s.PromoteExact).
		Case(!s.IgnoreCase)
}

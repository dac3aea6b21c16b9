package entitycache

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-census/census"
)

// FallbackProvider is implemented by kinds that ship hand written payloads
// for entries missing from the live collection. A fallback is only used when
// the live lookup comes back empty.
type FallbackProvider interface {
	Fallback(id int) (census.Payload, bool)
}

// StaticFallback is a fallback table keyed by id.
type StaticFallback map[int]census.Payload

// Fallback returns a copy of the payload for id.
func (s StaticFallback) Fallback(id int) (census.Payload, bool) {
	p, ok := s[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// LoadFallbackYAML reads a fallback table shaped as a mapping of id to payload.
func LoadFallbackYAML(r io.Reader) (StaticFallback, error) {
	var raw map[int]map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return StaticFallback{}, nil
		}
		return nil, fmt.Errorf("decode fallback yaml: %w", err)
	}

	table := make(StaticFallback, len(raw))
	for id, payload := range raw {
		table[id] = census.Payload(payload)
	}
	return table, nil
}

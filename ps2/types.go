package ps2

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/entitycache"
)

// ImageBaseURL is where the Census API serves static images.
const ImageBaseURL = "https://census.daybreakgames.com/files/ps2/images/static/"

// ImageURL returns the URL of the static image with id.
func ImageURL(imageID int) string {
	return fmt.Sprintf("%s%d.png", ImageBaseURL, imageID)
}

//go:embed fallback/faction.yaml
var factionFallback []byte

// Types holds the registered PlanetSide 2 entity types.
type Types struct {
	Faction      *entitycache.Named[*Faction]
	Title        *entitycache.Named[*Title]
	Character    *entitycache.Named[*Character]
	Outfit       *entitycache.Named[*Outfit]
	OutfitMember *entitycache.Cached[*OutfitMember]
	Objective    *entitycache.Cached[*Objective]
}

// DefaultConfigs returns the cache configuration of every type, keyed by type name.
func DefaultConfigs() map[string]entitycache.Config {
	return map[string]entitycache.Config{
		"Faction":      {Cache: cache.Config{Size: 10}},
		"Title":        {Cache: cache.Config{Size: 300, TTU: 5 * time.Minute}},
		"Character":    {Cache: cache.Config{Size: 256, TTU: 30 * time.Second}},
		"Outfit":       {Cache: cache.Config{Size: 20, TTU: 5 * time.Minute}},
		"OutfitMember": {Cache: cache.Config{Size: 100, TTU: 5 * time.Minute}},
		"Objective":    {Cache: cache.Config{Size: 100, TTU: 5 * time.Minute}},
	}
}

// Register registers every type on reg with DefaultConfigs. Use
// Registry.Apply to override the bounds afterwards.
func Register(reg *entitycache.Registry) (*Types, error) {
	return RegisterWith(reg, DefaultConfigs())
}

// RegisterWith registers every type on reg. Types missing from configs use
// their default configuration.
func RegisterWith(reg *entitycache.Registry, configs map[string]entitycache.Config) (*Types, error) {
	defaults := DefaultConfigs()
	cfg := func(name string) entitycache.Config {
		if c, ok := configs[name]; ok {
			return c
		}
		return defaults[name]
	}

	fallback, err := entitycache.LoadFallbackYAML(bytes.NewReader(factionFallback))
	if err != nil {
		return nil, fmt.Errorf("load faction fallback: %w", err)
	}

	t := &Types{}
	if t.Faction, err = entitycache.RegisterNamed[*Faction](reg, factionKind{StaticFallback: fallback}, cfg("Faction")); err != nil {
		return nil, err
	}
	if t.Title, err = entitycache.RegisterNamed[*Title](reg, titleKind{}, cfg("Title")); err != nil {
		return nil, err
	}
	if t.Character, err = entitycache.RegisterNamed[*Character](reg, characterKind{types: t}, cfg("Character")); err != nil {
		return nil, err
	}
	if t.Outfit, err = entitycache.RegisterNamed[*Outfit](reg, outfitKind{types: t}, cfg("Outfit")); err != nil {
		return nil, err
	}
	if t.OutfitMember, err = entitycache.Register[*OutfitMember](reg, outfitMemberKind{types: t}, cfg("OutfitMember")); err != nil {
		return nil, err
	}
	if t.Objective, err = entitycache.Register[*Objective](reg, objectiveKind{}, cfg("Objective")); err != nil {
		return nil, err
	}
	return t, nil
}

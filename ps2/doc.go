// Package ps2 defines the PlanetSide 2 entity kinds served by the Census API
// and registers them with an entitycache.Registry.
//
// Relations between entities are never stored as object references. An
// entity keeps the foreign id and returns a proxy that resolves the related
// entity on demand through the registered type, so Character and Outfit can
// refer to each other without a dependency cycle.
package ps2

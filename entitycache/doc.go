// Package entitycache resolves Census entities through per-type TLRU caches.
//
// Every entity type is registered once on a Registry together with its cache
// configuration. Registration returns a Cached (or Named) handle that owns the
// type's caches and implements the lookup protocol:
//
//  1. GetByID checks the type's id cache and returns the cached instance on a hit.
//  2. On a miss it dispatches "<id_field>=<id>" with a limit of 1.
//  3. A live result is constructed, registered in the cache and returned.
//  4. An empty result falls back to the type's static fallback table, if any.
//     Otherwise the lookup reports "not found" without an error.
//
// Named types additionally cache by "<locale>_<lowercase name>" and resolve
// names with a case-insensitive query.
//
// Find, Get and Count always dispatch; every entity they construct is still
// registered so later id lookups hit.
//
// Caches are safe for concurrent use, but the check, fetch and register
// sequence is not atomic. Callers that need single-flight lookups for the
// same id must serialise them.
package entitycache

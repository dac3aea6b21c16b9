// Package responsecache provides a read-through census.Executor decorator.
//
// Responses are cached by query fingerprint through a cache.CacheService
// (sturdyc by default), so identical queries issued within the TTL are
// answered without a round trip. Entity identity is unaffected: cached
// envelopes still flow through the entitycache resolution protocol.
//
//	svc, _ := cache.NewCacheService(cache.DefaultResponseConfig())
//	exec := responsecache.New(base, svc, cache.NewDefaultKeySerializer())
//
//	ctx = responsecache.WithTags(ctx, "leaderboard")
//	env, err := exec.Execute(ctx, q)
//
//	_ = exec.InvalidateTag(ctx, "leaderboard")
//	_ = exec.InvalidateCollection(ctx, "character")
//
// Errors are never cached. Envelopes returned from the cache are shared
// between callers and must be treated as read-only.
package responsecache

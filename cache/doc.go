// Package cache provides the TLRU cache backing per-type entity storage, the
// configuration records used to size it, and the read-through interfaces used
// by the response cache.
//
// # TLRU
//
// TLRU combines least-recently-used ordering with a time-to-use window:
//
//	c, err := cache.New[int64, *Outfit]("Outfit", 20, 5*time.Minute)
//	c.Add(37509488620604883, outfit)
//	o, ok := c.Get(37509488620604883) // hit, moved to the front
//
// An entry older than the window is reported as missing and dropped on the
// next read, however recently it was used. Resize and SetTTU change the bounds
// at runtime; Resize rejects sizes below one with a ConfigurationError and
// leaves the cache as it was.
//
// A cache created with size zero is disabled. Named entity types use this to
// opt out of one of their two key spaces.
//
// # Configuration
//
// Config is the per-type record (Size, TTU). Settings groups per-type
// overrides with the response cache block and can be loaded from YAML:
//
//	types:
//	  Character:
//	    size: 512
//	    ttu: 30s
//	response_cache:
//	  capacity: 2000
//	  num_shards: 16
//	  ttl: 30s
//	  eviction_percentage: 10
//
// # Read-through services
//
// CacheService and KeySerializer are the seams used by the responsecache
// package. NewCacheService returns the sturdyc backed implementation.
package cache

// Package mirror serves Census queries from local go-repository-bun
// repositories, for offline use or for tables mirrored into a database.
//
// Each Collection adapts one repository. Filter terms are translated to bun
// select criteria and pushed down to SQL together with sort, limit and
// offset. Joins, show/hide projection and envelope shaping are resolved by
// the shared local query engine, so the mirror answers the same queries the
// live API does:
//
//	factions := mirror.NewCollection("faction", factionRepo, mirror.WithLocalFiltering())
//	members := mirror.NewCollection("outfit_member", memberRepo,
//		mirror.WithIDField("character_id"),
//	)
//	exec := mirror.New(factions, members).WithLogger(logger)
//
// Records are converted to payloads through their JSON encoding, so json
// tags should use Census field names.
package mirror

package ps2

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/entitycache"
	"github.com/goliatone/go-census/query"
)

// CharacterTimes holds play time statistics.
type CharacterTimes struct {
	Creation      time.Time
	LastSave      time.Time
	LastLogin     time.Time
	LoginCount    int
	MinutesPlayed int
}

// CharacterCerts holds certification point statistics.
type CharacterCerts struct {
	EarnedPoints    int
	GiftedPoints    int
	SpentPoints     int
	AvailablePoints int
	PercentToNext   float64
}

// BattleRank is the character's level.
type BattleRank struct {
	PercentToNext float64
	Value         int
}

// Character is a player controlled soldier.
type Character struct {
	census.Object
	types *Types

	first         string
	firstLower    string
	FactionID     int
	HeadID        int
	TitleID       int
	Times         CharacterTimes
	Certs         CharacterCerts
	BattleRank    BattleRank
	ProfileID     int
	PrestigeLevel int
}

// Name returns the character name. Character names are not localised.
func (c *Character) Name(string) string { return c.first }

// NameLower returns the lowercase name as stored by the server.
func (c *Character) NameLower() string { return c.firstLower }

// Faction returns a proxy for the character's faction.
func (c *Character) Faction() *entitycache.InstanceProxy[*Faction] {
	return c.types.Faction.Ref(c.FactionID, c.Executor())
}

// Title returns a proxy for the selected title. Characters without a title
// resolve to not found.
func (c *Character) Title() *entitycache.InstanceProxy[*Title] {
	id := c.TitleID
	if id == 0 {
		id = -1
	}
	return c.types.Title.Ref(id, c.Executor())
}

// OutfitMember returns a proxy for the character's outfit membership.
func (c *Character) OutfitMember() *entitycache.InstanceProxy[*OutfitMember] {
	q := query.New("outfit_member").Where("character_id", c.ID())
	return c.types.OutfitMember.Proxy(q, c.Executor())
}

// outfitMemberKeys are the membership fields outfit_member_extended adds to
// the outfit payload.
var outfitMemberKeys = []string{"character_id", "member_since", "member_since_date", "rank", "rank_ordinal"}

// Outfit returns a proxy for the character's outfit, resolved through the
// outfit_member_extended collection.
func (c *Character) Outfit() *entitycache.InstanceProxy[*Outfit] {
	q := query.New("outfit_member_extended").Where("character_id", c.ID())
	outfits := c.types.Outfit
	return entitycache.NewInstanceProxy[*Outfit](q, c.Executor(), func(p census.Payload, exec census.Executor) (*Outfit, error) {
		p = p.Clone()
		for _, key := range outfitMemberKeys {
			delete(p, key)
		}
		return outfits.Construct(p, exec)
	})
}

// Friends returns the characters on the friend list.
func (c *Character) Friends(ctx context.Context) ([]*Character, error) {
	q := query.New("characters_friend").Where("character_id", c.ID())
	q.AddJoin(query.NewJoin("character").Fields("character_id", "").List(true))

	env, err := c.Executor().Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	row, ok, err := env.Single("characters_friend")
	if err != nil || !ok {
		return nil, err
	}

	d := census.NewDecoder(row)
	list, _ := d.Raw("friend_list")
	entries, _ := list.([]any)

	ids := make([]int, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		friend := census.NewDecoder(obj)
		id := friend.Int("character_id")
		if err := friend.Err(); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.types.Character.GetByIDs(ctx, c.Executor(), ids...)
}

// NameLong returns the name prefixed with the selected title in locale.
func (c *Character) NameLong(ctx context.Context, locale string) (string, error) {
	if c.TitleID == 0 {
		return c.first, nil
	}
	title, ok, err := c.Title().Resolve(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		if name := title.Name(locale); name != "" {
			return name + " " + c.first, nil
		}
	}
	return c.first, nil
}

type characterKind struct {
	types *Types
}

func (characterKind) TypeName() string   { return "Character" }
func (characterKind) Collection() string { return "character" }
func (characterKind) IDField() string    { return "character_id" }

// NameQuery matches the lowercase name field, which is cheaper than a
// case-insensitive search.
func (characterKind) NameQuery(name, _ string) *query.Query {
	return query.New("character").Where("name.first_lower", strings.ToLower(name))
}

func (k characterKind) Build(obj census.Object, d *census.Decoder) (*Character, error) {
	name := d.Object("name")
	times := d.Object("times")
	certs := d.Object("certs")
	rank := d.Object("battle_rank")

	return &Character{
		Object:     obj,
		types:      k.types,
		first:      name.String("first"),
		firstLower: name.String("first_lower"),
		FactionID:  d.Int("faction_id"),
		HeadID:     d.Int("head_id"),
		TitleID:    d.Int("title_id"),
		Times: CharacterTimes{
			Creation:      times.Time("creation"),
			LastSave:      times.Time("last_save"),
			LastLogin:     times.Time("last_login"),
			LoginCount:    times.Int("login_count"),
			MinutesPlayed: times.Int("minutes_played"),
		},
		Certs: CharacterCerts{
			EarnedPoints:    certs.Int("earned_points"),
			GiftedPoints:    certs.Int("gifted_points"),
			SpentPoints:     certs.Int("spent_points"),
			AvailablePoints: certs.Int("available_points"),
			PercentToNext:   certs.Float("percent_to_next"),
		},
		BattleRank: BattleRank{
			PercentToNext: rank.Float("percent_to_next"),
			Value:         rank.Int("value"),
		},
		ProfileID:     d.Int("profile_id"),
		PrestigeLevel: d.Int("prestige_level"),
	}, nil
}

package ps2

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/entitycache"
	"github.com/goliatone/go-census/query"
)

// MaxOutfitMembers caps the members query of an outfit.
const MaxOutfitMembers = 5000

// MaxOutfitRanks caps the ranks query of an outfit.
const MaxOutfitRanks = 20

// Outfit is a player run guild.
type Outfit struct {
	census.Object
	types *Types

	name              string
	NameLower         string
	Alias             string
	AliasLower        string
	TimeCreated       time.Time
	LeaderCharacterID int
	MemberCount       int
}

// Name returns the outfit name. Outfit names are not localised.
func (o *Outfit) Name(string) string { return o.name }

// Tag is the outfit alias.
func (o *Outfit) Tag() string { return o.Alias }

// Leader returns a proxy for the membership of the outfit leader.
func (o *Outfit) Leader() *entitycache.InstanceProxy[*OutfitMember] {
	return o.types.OutfitMember.Ref(o.LeaderCharacterID, o.Executor())
}

// Members returns a proxy for every member of the outfit.
func (o *Outfit) Members() *entitycache.SequenceProxy[*OutfitMember] {
	q := query.New("outfit_member").Where("outfit_id", o.ID()).Limit(MaxOutfitMembers)
	return o.types.OutfitMember.Sequence(q, o.Executor())
}

// OutfitRank is one rank of an outfit. Ranks are plain data, not cached.
type OutfitRank struct {
	OutfitID    int
	Ordinal     int
	Name        string
	Description string
}

// Ranks fetches the ranks of the outfit ordered as returned by the server.
func (o *Outfit) Ranks(ctx context.Context) ([]OutfitRank, error) {
	q := query.New("outfit_rank").Where("outfit_id", o.ID()).Limit(MaxOutfitRanks)
	env, err := o.Executor().Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := env.List("outfit_rank")
	if err != nil {
		return nil, err
	}

	ranks := make([]OutfitRank, 0, len(rows))
	for _, row := range rows {
		d := census.NewDecoder(row)
		rank := OutfitRank{
			OutfitID: d.Int("outfit_id"),
			Ordinal:  d.Int("ordinal"),
			Name:     d.String("name"),
		}
		if desc := d.OptionalString("description"); desc != nil {
			rank.Description = *desc
		}
		if err := d.Err(); err != nil {
			return nil, err
		}
		ranks = append(ranks, rank)
	}
	return ranks, nil
}

func (o *Outfit) String() string {
	return fmt.Sprintf("<%s:%d:[%s] %s>", o.TypeName(), o.ID(), o.Alias, o.name)
}

// OutfitByTag looks an outfit up by its alias. The match ignores case.
func (t *Types) OutfitByTag(ctx context.Context, exec census.Executor, tag string) (*Outfit, bool, error) {
	return t.Outfit.Get(ctx, exec, entitycache.Search{
		Terms: []query.Term{query.NewTerm("alias_lower", query.Equals, strings.ToLower(tag))},
	})
}

type outfitKind struct {
	types *Types
}

func (outfitKind) TypeName() string   { return "Outfit" }
func (outfitKind) Collection() string { return "outfit" }
func (outfitKind) IDField() string    { return "outfit_id" }

func (outfitKind) NameQuery(name, _ string) *query.Query {
	return query.New("outfit").Where("name_lower", strings.ToLower(name))
}

func (k outfitKind) Build(obj census.Object, d *census.Decoder) (*Outfit, error) {
	d.Skip("time_created_date")
	return &Outfit{
		Object:            obj,
		types:             k.types,
		name:              d.String("name"),
		NameLower:         d.String("name_lower"),
		Alias:             d.String("alias"),
		AliasLower:        d.String("alias_lower"),
		TimeCreated:       d.Time("time_created"),
		LeaderCharacterID: d.Int("leader_character_id"),
		MemberCount:       d.Int("member_count"),
	}, nil
}

// OutfitMember is the membership of a character in an outfit. It shares the
// character's id.
type OutfitMember struct {
	census.Object
	types *Types

	OutfitID    int
	MemberSince time.Time
	Rank        string
	RankOrdinal int
}

// Character returns a proxy for the member's character.
func (m *OutfitMember) Character() *entitycache.InstanceProxy[*Character] {
	return m.types.Character.Ref(m.ID(), m.Executor())
}

// Outfit returns a proxy for the member's outfit.
func (m *OutfitMember) Outfit() *entitycache.InstanceProxy[*Outfit] {
	return m.types.Outfit.Ref(m.OutfitID, m.Executor())
}

type outfitMemberKind struct {
	types *Types
}

func (outfitMemberKind) TypeName() string   { return "OutfitMember" }
func (outfitMemberKind) Collection() string { return "outfit_member" }
func (outfitMemberKind) IDField() string    { return "character_id" }

func (k outfitMemberKind) Build(obj census.Object, d *census.Decoder) (*OutfitMember, error) {
	d.Skip("member_since_date")
	return &OutfitMember{
		Object:      obj,
		types:       k.types,
		OutfitID:    d.Int("outfit_id"),
		MemberSince: d.Time("member_since"),
		Rank:        d.String("rank"),
		RankOrdinal: d.Int("rank_ordinal"),
	}, nil
}

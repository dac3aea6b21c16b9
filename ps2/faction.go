package ps2

import (
	"fmt"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/entitycache"
)

// Faction is one of the empires: VS, NC, TR or NSO.
type Faction struct {
	census.Object
	names          census.Locale
	CodeTag        string
	UserSelectable bool
	ImageID        *int
	ImageSetID     *int
	ImagePath      *string
}

// Name returns the localised name, or the English one for unknown locales.
func (f *Faction) Name(locale string) string {
	if s, ok := f.names.Get(locale); ok {
		return s
	}
	s, _ := f.names.Get(entitycache.DefaultLocale)
	return s
}

// Tag is the faction's code tag.
func (f *Faction) Tag() string { return f.CodeTag }

// Image returns the URL of the faction's default image, if it has one.
func (f *Faction) Image() (string, bool) {
	if f.ImageID == nil {
		return "", false
	}
	return ImageURL(*f.ImageID), true
}

func (f *Faction) String() string {
	return fmt.Sprintf("<%s:%d:%s>", f.TypeName(), f.ID(), f.CodeTag)
}

type factionKind struct {
	entitycache.StaticFallback
}

func (factionKind) TypeName() string   { return "Faction" }
func (factionKind) Collection() string { return "faction" }
func (factionKind) IDField() string    { return "faction_id" }

func (factionKind) Build(obj census.Object, d *census.Decoder) (*Faction, error) {
	return &Faction{
		Object:         obj,
		names:          d.Locale("name"),
		CodeTag:        d.String("code_tag"),
		UserSelectable: d.Bool("user_selectable"),
		ImageID:        d.OptionalInt("image_id"),
		ImageSetID:     d.OptionalInt("image_set_id"),
		ImagePath:      d.OptionalString("image_path"),
	}, nil
}

package ps2

import (
	"github.com/goliatone/go-census/census"
)

// Title is a title a character can display. Title ids are not unique
// across locales: ASP titles reuse ids with different names.
type Title struct {
	census.Object
	names census.Locale
}

func (t *Title) Name(locale string) string {
	s, _ := t.names.Get(locale)
	return s
}

type titleKind struct{}

func (titleKind) TypeName() string   { return "Title" }
func (titleKind) Collection() string { return "title" }
func (titleKind) IDField() string    { return "title_id" }

func (titleKind) Build(obj census.Object, d *census.Decoder) (*Title, error) {
	return &Title{Object: obj, names: d.Locale("name")}, nil
}

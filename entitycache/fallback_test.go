package entitycache

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/pkg/testsupport"
)

func TestLoadFallbackYAML(t *testing.T) {
	f, err := os.Open(testsupport.FixturePath("fallback.yaml"))
	require.NoError(t, err)
	defer f.Close()

	table, err := LoadFallbackYAML(f)
	require.NoError(t, err)
	require.Len(t, table, 2)

	items, err := Register[*testItem](newTestRegistry(), fallbackItemKind{StaticFallback: table}, defaultConfig())
	require.NoError(t, err)

	item, ok, err := items.GetByID(context.Background(), seededExecutor(), 12)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Spare Parts", item.Name("en"))
	assert.Equal(t, "SPC", item.Code)
}

func TestLoadFallbackYAML_Errors(t *testing.T) {
	table, err := LoadFallbackYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table)

	_, err = LoadFallbackYAML(strings.NewReader("not: [valid"))
	assert.Error(t, err)
}

func TestStaticFallback_ReturnsCopies(t *testing.T) {
	table := StaticFallback{1: census.Payload{"item_id": "1"}}

	p, ok := table.Fallback(1)
	require.True(t, ok)
	p["item_id"] = "changed"

	again, _ := table.Fallback(1)
	assert.Equal(t, "1", again["item_id"])

	_, ok = table.Fallback(2)
	assert.False(t, ok)
}

func TestGetByIDs_UsesFallbackForMissingIDs(t *testing.T) {
	kind := fallbackItemKind{StaticFallback: StaticFallback{4: itemRow(4, "Local", "LOC")}}
	items, err := Register[*testItem](newTestRegistry(), kind, defaultConfig())
	require.NoError(t, err)

	got, err := items.GetByIDs(context.Background(), seededExecutor(itemRow(1, "One", "ONE")), 4, 1, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].ID())
	assert.Equal(t, 1, got[1].ID())
}

package testsupport

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvelope(t *testing.T) {
	env := LoadEnvelope(t, FixturePath("faction_list.json"))

	rows, err := env.List("faction")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "VS", rows[0]["code_tag"])
	assert.Equal(t, 1, env.Returned())
}

func TestLoadCollections(t *testing.T) {
	collections := LoadCollections(t, FixturePath("outfits.json"))

	assert.Len(t, collections["outfit"], 2)
	assert.Len(t, collections["outfit_member"], 3)
	assert.Equal(t, "Bhor", collections["outfit"][0]["name"])
}

func TestLoadReaderAndTempFile(t *testing.T) {
	path := TempFile(t, "settings.yaml", []byte("types: {}\n"))

	data, err := io.ReadAll(LoadReader(t, path))
	require.NoError(t, err)
	assert.Equal(t, "types: {}\n", string(data))
}

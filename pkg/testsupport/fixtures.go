package testsupport

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-census/census"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadEnvelope loads a recorded Census response.
func LoadEnvelope(t testing.TB, path string) census.Envelope {
	t.Helper()

	var env census.Envelope
	LoadFixtureJSON(t, path, &env)
	return env
}

// LoadCollections loads a fixture shaped as {"<collection>": [objects...]}.
func LoadCollections(t testing.TB, path string) map[string][]census.Payload {
	t.Helper()

	var raw map[string][]map[string]any
	LoadFixtureJSON(t, path, &raw)

	out := make(map[string][]census.Payload, len(raw))
	for collection, rows := range raw {
		payloads := make([]census.Payload, len(rows))
		for i, row := range rows {
			payloads[i] = census.Payload(row)
		}
		out[collection] = payloads
	}
	return out
}

// LoadReader creates an io.Reader from fixture data.
func LoadReader(t testing.TB, path string) io.Reader {
	t.Helper()

	return bytes.NewReader(LoadFixture(t, path))
}

// TempFile writes content to a file in a per-test temporary directory and
// returns its path. The directory is removed when the test ends.
func TempFile(t testing.TB, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write temp file %s: %v", path, err)
	}
	return path
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

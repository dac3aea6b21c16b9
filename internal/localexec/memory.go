package localexec

import (
	"context"
	"sync"

	"github.com/goliatone/go-census/census"
)

// MemorySource keeps rows per collection in memory. Unknown collections are empty.
type MemorySource struct {
	mu   sync.RWMutex
	rows map[string][]census.Payload
}

// NewMemorySource returns an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{rows: make(map[string][]census.Payload)}
}

// Add appends rows to collection.
func (m *MemorySource) Add(collection string, rows ...census.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.rows[collection] = append(m.rows[collection], row.Clone())
	}
}

// Replace swaps the rows of collection.
func (m *MemorySource) Replace(collection string, rows []census.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cloned := make([]census.Payload, len(rows))
	for i, row := range rows {
		cloned[i] = row.Clone()
	}
	m.rows[collection] = cloned
}

// Collections lists the collections holding rows.
func (m *MemorySource) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.rows))
	for name := range m.rows {
		names = append(names, name)
	}
	return names
}

func (m *MemorySource) Select(ctx context.Context, sel Selection) ([]census.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	rows := Apply(m.rows[sel.Collection], sel)
	m.mu.RUnlock()

	out := make([]census.Payload, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out, nil
}

func (m *MemorySource) Count(ctx context.Context, sel Selection) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sel.Limit, sel.Offset = 0, 0
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(Apply(m.rows[sel.Collection], sel)), nil
}

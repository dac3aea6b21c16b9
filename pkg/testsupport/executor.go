package testsupport

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/internal/localexec"
	"github.com/goliatone/go-census/query"
)

// Call records one executor invocation.
type Call struct {
	Verb  string
	Query *query.Query
}

// MemoryExecutor emulates the Census API over in-memory collections and
// records every call. It supports filters, pagination, exact match
// promotion and joins.
type MemoryExecutor struct {
	mu     sync.Mutex
	src    *localexec.MemorySource
	engine *localexec.Engine
	calls  []Call
	fail   []error
	onCall func(ctx context.Context, call Call)
}

var _ census.Executor = (*MemoryExecutor)(nil)

// NewMemoryExecutor returns an empty emulator. idFields maps collections to
// their id field for default join mappings; others use "<collection>_id".
func NewMemoryExecutor(idFields map[string]string) *MemoryExecutor {
	src := localexec.NewMemorySource()
	return &MemoryExecutor{
		src:    src,
		engine: localexec.New(src, localexec.WithIDFields(idFields)),
	}
}

// Seed appends rows to collection.
func (m *MemoryExecutor) Seed(collection string, rows ...census.Payload) *MemoryExecutor {
	m.src.Add(collection, rows...)
	return m
}

// SeedFixture loads a {"<collection>": [...]} fixture file.
func (m *MemoryExecutor) SeedFixture(t testing.TB, path string) *MemoryExecutor {
	t.Helper()
	for collection, rows := range LoadCollections(t, path) {
		m.src.Add(collection, rows...)
	}
	return m
}

// FailNext makes the next call return err instead of executing.
func (m *MemoryExecutor) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = append(m.fail, err)
}

// OnCall registers a hook that runs before each call is answered.
func (m *MemoryExecutor) OnCall(fn func(ctx context.Context, call Call)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCall = fn
}

// Calls returns the recorded calls.
func (m *MemoryExecutor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns the number of recorded calls.
func (m *MemoryExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset forgets the recorded calls and pending failures.
func (m *MemoryExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.fail = nil
}

func (m *MemoryExecutor) Execute(ctx context.Context, q *query.Query) (census.Envelope, error) {
	if err := m.record(ctx, "get", q); err != nil {
		return nil, err
	}
	return m.engine.Execute(ctx, q)
}

func (m *MemoryExecutor) Count(ctx context.Context, q *query.Query) (int, error) {
	if err := m.record(ctx, "count", q); err != nil {
		return 0, err
	}
	return m.engine.Count(ctx, q)
}

func (m *MemoryExecutor) record(ctx context.Context, verb string, q *query.Query) error {
	call := Call{Verb: verb, Query: q.Clone()}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	hook := m.onCall
	var err error
	if len(m.fail) > 0 {
		err, m.fail = m.fail[0], m.fail[1:]
	}
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}
	return err
}

// ExecutorFunc adapts functions to census.Executor. Nil functions return
// an empty envelope or zero.
type ExecutorFunc struct {
	ExecuteFn func(ctx context.Context, q *query.Query) (census.Envelope, error)
	CountFn   func(ctx context.Context, q *query.Query) (int, error)
}

func (f ExecutorFunc) Execute(ctx context.Context, q *query.Query) (census.Envelope, error) {
	if f.ExecuteFn == nil {
		return census.NewEnvelope(q.Collection, nil), nil
	}
	return f.ExecuteFn(ctx, q)
}

func (f ExecutorFunc) Count(ctx context.Context, q *query.Query) (int, error) {
	if f.CountFn == nil {
		return 0, nil
	}
	return f.CountFn(ctx, q)
}

// StaticExecutor always answers with rows, ignoring terms and limits.
func StaticExecutor(rows ...census.Payload) ExecutorFunc {
	return ExecutorFunc{
		ExecuteFn: func(ctx context.Context, q *query.Query) (census.Envelope, error) {
			return census.NewEnvelope(q.Collection, rows), nil
		},
		CountFn: func(ctx context.Context, q *query.Query) (int, error) {
			return len(rows), nil
		},
	}
}

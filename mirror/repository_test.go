package mirror

import (
	"context"
	"regexp"
	"strconv"
	"sync"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// defaultPageSize is the limit go-repository-bun applies to List before
// the caller's criteria.
const defaultPageSize = 25

// mockRepository serves a fixed record set and records the criteria of
// every read. List pages the records the way go-repository-bun does.
// Writes are not used by the mirror and return zero values.
type mockRepository[T any] struct {
	mu       sync.Mutex
	records  []T
	total    int
	listErr  error
	countErr error
	calls    []string
	criteria [][]repository.SelectCriteria
}

func newMockRepository[T any](records ...T) *mockRepository[T] {
	return &mockRepository[T]{records: records, total: len(records)}
}

func (m *mockRepository[T]) record(method string, criteria []repository.SelectCriteria) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
	m.criteria = append(m.criteria, criteria)
}

func (m *mockRepository[T]) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepository[T]) lastCriteria() []repository.SelectCriteria {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.criteria) == 0 {
		return nil
	}
	return m.criteria[len(m.criteria)-1]
}

func (m *mockRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.record("List", criteria)
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	limit, offset, err := page(criteria)
	if err != nil {
		return nil, 0, err
	}
	records := m.records
	if offset >= len(records) {
		records = nil
	} else {
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return append([]T(nil), records...), m.total, nil
}

var (
	limitClause  = regexp.MustCompile(` LIMIT (\d+)`)
	offsetClause = regexp.MustCompile(` OFFSET (\d+)`)
)

// page renders criteria over the repository defaults and reads back the
// resulting LIMIT and OFFSET. A zero limit means no LIMIT clause.
func page(criteria []repository.SelectCriteria) (limit, offset int, err error) {
	q := bun.NewSelectQuery(nil).Limit(defaultPageSize).Offset(0)
	for _, c := range criteria {
		q.Apply(c)
	}
	raw, err := q.AppendQuery(schema.NewNopFormatter(), nil)
	if err != nil {
		return 0, 0, err
	}
	if m := limitClause.FindSubmatch(raw); m != nil {
		limit, _ = strconv.Atoi(string(m[1]))
	}
	if m := offsetClause.FindSubmatch(raw); m != nil {
		offset, _ = strconv.Atoi(string(m[1]))
	}
	return limit, offset, nil
}

func (m *mockRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.record("Count", criteria)
	return m.total, m.countErr
}

func (m *mockRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	var zero T
	return zero, nil
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	var zero T
	return zero, nil
}

func (m *mockRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	var zero T
	return zero, nil
}

func (m *mockRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return records, nil
}

func (m *mockRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return records, nil
}

func (m *mockRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return records, nil
}

func (m *mockRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return records, nil
}

func (m *mockRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return record, nil
}

func (m *mockRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return records, nil
}

func (m *mockRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return records, nil
}

func (m *mockRepository[T]) Delete(ctx context.Context, record T) error {
	return nil
}

func (m *mockRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return nil
}

func (m *mockRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return nil
}

func (m *mockRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return nil
}

func (m *mockRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return nil
}

func (m *mockRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return nil
}

func (m *mockRepository[T]) ForceDelete(ctx context.Context, record T) error {
	return nil
}

func (m *mockRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return nil
}

func (m *mockRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	var zero T
	return zero, nil
}

func (m *mockRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	var zero T
	return zero, nil
}

func (m *mockRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return m.List(ctx, criteria...)
}

func (m *mockRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return m.Count(ctx, criteria...)
}

func (m *mockRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	var zero T
	return zero, nil
}

func (m *mockRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return nil, nil
}

func (m *mockRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return nil, nil
}

func (m *mockRepository[T]) Handlers() repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{}
}

var _ repository.Repository[factionRecord] = (*mockRepository[factionRecord])(nil)

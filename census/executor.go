package census

import (
	"context"
	"log/slog"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-census/query"
)

// Executor runs queries against the remote API. Transport failures are
// returned as is; callers do not retry or interpret them.
type Executor interface {
	// Execute returns the response envelope for q.
	Execute(ctx context.Context, q *query.Query) (Envelope, error)
	// Count returns the number of objects matching q.
	Count(ctx context.Context, q *query.Query) (int, error)
}

type loggingExecutor struct {
	base   Executor
	logger *slog.Logger
}

// WithLogging decorates exec with debug logging of every dispatch.
// Errors are logged and returned unchanged.
func WithLogging(exec Executor, logger *slog.Logger) Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingExecutor{base: exec, logger: logger}
}

func (e *loggingExecutor) Execute(ctx context.Context, q *query.Query) (Envelope, error) {
	requestID := uuid.NewString()
	start := time.Now()
	e.logger.DebugContext(ctx, "census request", "request_id", requestID, "verb", "get", "query", q.String())

	env, err := e.base.Execute(ctx, q)
	if err != nil {
		e.logFailure(ctx, requestID, q, start, err)
		return nil, err
	}

	e.logger.DebugContext(ctx, "census response",
		"request_id", requestID,
		"collection", q.Collection,
		"returned", env.Returned(),
		"duration", time.Since(start),
	)
	return env, nil
}

func (e *loggingExecutor) Count(ctx context.Context, q *query.Query) (int, error) {
	requestID := uuid.NewString()
	start := time.Now()
	e.logger.DebugContext(ctx, "census request", "request_id", requestID, "verb", "count", "query", q.String())

	n, err := e.base.Count(ctx, q)
	if err != nil {
		e.logFailure(ctx, requestID, q, start, err)
		return 0, err
	}

	e.logger.DebugContext(ctx, "census response",
		"request_id", requestID,
		"collection", q.Collection,
		"count", n,
		"duration", time.Since(start),
	)
	return n, nil
}

func (e *loggingExecutor) logFailure(ctx context.Context, requestID string, q *query.Query, start time.Time, err error) {
	attrs := []any{
		"request_id", requestID,
		"collection", q.Collection,
		"duration", time.Since(start),
		"error", err,
	}
	var ge *goerrors.Error
	if goerrors.As(err, &ge) {
		attrs = append(attrs, "category", ge.Category, "text_code", ge.TextCode)
	}
	e.logger.ErrorContext(ctx, "census request failed", attrs...)
}

package census

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-census/query"
)

type stubExecutor struct {
	env   Envelope
	count int
	err   error
}

func (s *stubExecutor) Execute(ctx context.Context, q *query.Query) (Envelope, error) {
	return s.env, s.err
}

func (s *stubExecutor) Count(ctx context.Context, q *query.Query) (int, error) {
	return s.count, s.err
}

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWithLogging_PassesResultsThrough(t *testing.T) {
	var buf bytes.Buffer
	base := &stubExecutor{env: NewEnvelope("faction", []Payload{{"faction_id": "1"}}), count: 4}
	exec := WithLogging(base, newBufferLogger(&buf))

	env, err := exec.Execute(context.Background(), query.New("faction").Where("faction_id", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, env.Returned())

	n, err := exec.Count(context.Background(), query.New("faction"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	out := buf.String()
	assert.Contains(t, out, "census request")
	assert.Contains(t, out, "request_id=")
	assert.Contains(t, out, "collection=faction")
}

func TestWithLogging_ReturnsTransportErrorsUnchanged(t *testing.T) {
	var buf bytes.Buffer
	transport := errors.New("dial tcp: connection refused")
	exec := WithLogging(&stubExecutor{err: transport}, newBufferLogger(&buf))

	_, err := exec.Execute(context.Background(), query.New("character"))
	assert.Same(t, transport, err)

	_, err = exec.Count(context.Background(), query.New("character"))
	assert.Same(t, transport, err)

	assert.Contains(t, buf.String(), "census request failed")
}

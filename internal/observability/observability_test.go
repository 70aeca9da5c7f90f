package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseMetrics_TrackQuery(t *testing.T) {
	m := NewDatabaseMetrics("posts_metrics_test")
	done := m.TrackQuery("find")
	done()

	assert.GreaterOrEqual(t, testutil.CollectAndCount(DatabaseQueryLatency), 1)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PostsCreated)
	PostsCreated.Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(PostsCreated), 0.001)

	LoginAttempts.WithLabelValues("failure").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(LoginAttempts.WithLabelValues("failure")), 1.0)
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-1")
	assert.Equal(t, "req-1", ExtractCorrelationID(ctx))
	assert.Equal(t, "", ExtractCorrelationID(context.Background()))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "blogicum-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	ctx, span := StartQuerySpan(context.Background(), "posts", "FindPosts")
	assert.NotNil(t, ctx)
	span.End()
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", newSampler(1).Description())
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestChangeLog(t *testing.T) {
	var buf bytes.Buffer
	prev := L()
	SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(prev) })

	ctx := WithCorrelationID(context.Background(), "req-9")
	NewChangeLog("posts").Created(ctx, 12, slog.Uint64("author_id", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "row created", rec["msg"])
	assert.Equal(t, "posts", rec["table"])
	assert.EqualValues(t, 12, rec["id"])
	assert.EqualValues(t, 3, rec["author_id"])
	assert.Equal(t, "req-9", rec["correlation_id"])

	buf.Reset()
	ChangeLogEnabled.Store(false)
	t.Cleanup(func() { ChangeLogEnabled.Store(true) })
	NewChangeLog("posts").Deleted(ctx, 12)
	assert.Zero(t, buf.Len())
}

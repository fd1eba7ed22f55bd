package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
)

func newJSONLogger(buf *bytes.Buffer, env string, mode observability.AppMode) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewTracingHandler(inner, "intervalindex", env, mode))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

// TestTracingHandler_InjectsTraceContext verifies span IDs are attached.
func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, "test", observability.ModeServe)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "stab served")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "intervalindex", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "serve", record["mode"])
}

// TestTracingHandler_NoTraceContext verifies nothing is injected without a span.
func TestTracingHandler_NoTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	newJSONLogger(&buf, "", observability.ModeCLI).InfoContext(context.Background(), "no span")

	record := decodeRecord(t, &buf)

	_, hasTraceID := record["trace_id"]
	assert.False(t, hasTraceID)

	_, hasEnv := record["env"]
	assert.False(t, hasEnv)
	assert.Equal(t, "cli", record["mode"])
}

// TestTracingHandler_WithGroup verifies service attrs stay top-level.
func TestTracingHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	grouped := newJSONLogger(&buf, "", observability.ModeCLI).WithGroup("tree")
	grouped.InfoContext(context.Background(), "rebuilt", slog.Int("nodes", 4))

	record := decodeRecord(t, &buf)
	assert.Equal(t, "intervalindex", record["service"])

	tree, ok := record["tree"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 4, tree["nodes"], 0)
}

// TestTracingHandler_WithAttrs verifies attributes added with With are kept.
func TestTracingHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, "", observability.ModeCLI).With(slog.String("op", "range"))
	logger.InfoContext(context.Background(), "started")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "range", record["op"])
	assert.Equal(t, "intervalindex", record["service"])
}

package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
)

func TestPrometheusReader_ServesMetrics(t *testing.T) {
	t.Parallel()

	reader, handler, err := observability.PrometheusReader()
	require.NoError(t, err)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	im, err := observability.NewIndexMetrics(mp.Meter("test"))
	require.NoError(t, err)

	im.RecordQuery(context.Background(), observability.OpRange, 4)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.Contains(t, body, "target_info")
	assert.Contains(t, body, "intervalindex_queries_total")
	assert.Contains(t, body, `op="range"`)
}

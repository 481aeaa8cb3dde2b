package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMetrics(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := newMetrics(mp.Meter(meterName))
	require.NoError(t, err)
	m.meterProvider = mp
	globalMetrics = m

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		globalMetrics = nil
	})

	return reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	want := attribute.NewSet(attrs...)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func TestRecordFunctionsAreNoopsBeforeInit(t *testing.T) {
	globalMetrics = nil

	assert.NotPanics(t, func() {
		RecordCacheLookup(context.Background(), "render", CacheHit)
		RecordUpstream(context.Background(), "figma", "success", time.Second)
		RecordOAuthSession(context.Background(), "succeeded")
		RecordMessage(context.Background(), "FIGMA_OAUTH", "success")
	})
}

func TestRecordCacheLookup(t *testing.T) {
	reader := setupTestMetrics(t)

	RecordCacheLookup(context.Background(), "render", CacheHit)
	RecordCacheLookup(context.Background(), "render", CacheHit)
	RecordCacheLookup(context.Background(), "render", CacheMiss)

	assert.Equal(t, int64(2), collectSum(t, reader, "pixzlo_cache_lookups_total",
		attribute.String("cache", "render"), attribute.String("result", CacheHit)))
	assert.Equal(t, int64(1), collectSum(t, reader, "pixzlo_cache_lookups_total",
		attribute.String("cache", "render"), attribute.String("result", CacheMiss)))
}

func TestRecordMessageAndOAuth(t *testing.T) {
	reader := setupTestMetrics(t)

	RecordMessage(context.Background(), "FIGMA_RENDER_FRAME", "error")
	RecordOAuthSession(context.Background(), "cancelled")

	assert.Equal(t, int64(1), collectSum(t, reader, "pixzlo_messages_total",
		attribute.String("type", "FIGMA_RENDER_FRAME"), attribute.String("outcome", "error")))
	assert.Equal(t, int64(1), collectSum(t, reader, "pixzlo_oauth_sessions_total",
		attribute.String("outcome", "cancelled")))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		status int
		err    error
		want   string
	}{
		{status: 200, want: "success"},
		{status: 204, want: "success"},
		{status: 401, want: "client_error"},
		{status: 503, want: "server_error"},
		{status: 0, err: errors.New("dial"), want: "error"},
		{status: 0, want: "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.status, tt.err))
	}
}

func TestPrometheusHandlerNotFoundWhenDisabled(t *testing.T) {
	globalMetrics = nil

	rec := httptest.NewRecorder()
	PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

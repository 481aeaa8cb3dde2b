// Package telemetry exposes OpenTelemetry instruments for the bridge's caches,
// upstream calls, OAuth sessions and message dispatch. Record functions are
// no-ops until InitMetrics has run.
package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const meterName = "github.com/pixzlo/pixzlo-bridge"

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
	CacheShared  = "shared"
)

// MetricsConfig configures the metrics system.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string

	// EnablePrometheus registers the Prometheus exporter and its HTTP handler.
	EnablePrometheus bool
}

// Metrics holds the OpenTelemetry metric instruments.
type Metrics struct {
	cacheLookupsTotal       metric.Int64Counter
	upstreamRequestsTotal   metric.Int64Counter
	upstreamRequestDuration metric.Float64Histogram
	oauthSessionsTotal      metric.Int64Counter
	messagesTotal           metric.Int64Counter

	meterProvider *sdkmetric.MeterProvider
	promHandler   http.Handler
}

var (
	globalMetrics *Metrics
	initOnce      sync.Once
	initErr       error
)

// InitMetrics initializes the metrics system once and returns its shutdown function.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (shutdown func(context.Context) error, err error) {
	initOnce.Do(func() {
		initErr = doInitMetrics(ctx, cfg)
	})

	if initErr != nil {
		return nil, initErr
	}

	return shutdownMetrics, nil
}

func doInitMetrics(_ context.Context, cfg MetricsConfig) error {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pixzlo-bridge"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	var promHandler http.Handler
	if cfg.EnablePrometheus {
		promExp, err := promexporter.New()
		if err != nil {
			return err
		}
		opts = append(opts, sdkmetric.WithReader(promExp))
		promHandler = promhttp.Handler()
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	m, err := newMetrics(mp.Meter(meterName))
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return err
	}
	m.meterProvider = mp
	m.promHandler = promHandler
	globalMetrics = m

	return nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	cacheLookupsTotal, err := meter.Int64Counter(
		"pixzlo_cache_lookups_total",
		metric.WithDescription("Cache lookups by cache and result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	upstreamRequestsTotal, err := meter.Int64Counter(
		"pixzlo_upstream_requests_total",
		metric.WithDescription("Requests sent to the backend and the design tool"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	upstreamRequestDuration, err := meter.Float64Histogram(
		"pixzlo_upstream_request_duration_seconds",
		metric.WithDescription("Duration of upstream requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	oauthSessionsTotal, err := meter.Int64Counter(
		"pixzlo_oauth_sessions_total",
		metric.WithDescription("Settled OAuth popup sessions by outcome"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	messagesTotal, err := meter.Int64Counter(
		"pixzlo_messages_total",
		metric.WithDescription("Dispatched messages by type and outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		cacheLookupsTotal:       cacheLookupsTotal,
		upstreamRequestsTotal:   upstreamRequestsTotal,
		upstreamRequestDuration: upstreamRequestDuration,
		oauthSessionsTotal:      oauthSessionsTotal,
		messagesTotal:           messagesTotal,
	}, nil
}

// shutdownMetrics shuts down the metrics provider and clears the global state.
func shutdownMetrics(ctx context.Context) error {
	if globalMetrics == nil {
		return nil
	}
	err := globalMetrics.meterProvider.Shutdown(ctx)
	globalMetrics = nil
	return err
}

func RecordCacheLookup(ctx context.Context, cache, result string) {
	if globalMetrics == nil {
		return
	}

	globalMetrics.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

func RecordUpstream(ctx context.Context, service, outcome string, duration time.Duration) {
	if globalMetrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("outcome", outcome),
	)
	globalMetrics.upstreamRequestsTotal.Add(ctx, 1, attrs)
	globalMetrics.upstreamRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

func RecordOAuthSession(ctx context.Context, outcome string) {
	if globalMetrics == nil {
		return
	}

	globalMetrics.oauthSessionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordMessage(ctx context.Context, messageType, outcome string) {
	if globalMetrics == nil {
		return
	}

	globalMetrics.messagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", messageType),
		attribute.String("outcome", outcome),
	))
}

// Outcome buckets an upstream HTTP status for metric attributes.
func Outcome(status int, err error) string {
	switch {
	case err != nil && status == 0:
		return "error"
	case status >= 200 && status < 300:
		return "success"
	case status >= 400 && status < 500:
		return "client_error"
	case status >= 500:
		return "server_error"
	default:
		return "unknown"
	}
}

// PrometheusHandler serves /metrics, or 404 when Prometheus export is disabled.
func PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if globalMetrics == nil || globalMetrics.promHandler == nil {
			http.NotFound(w, r)
			return
		}
		globalMetrics.promHandler.ServeHTTP(w, r)
	})
}

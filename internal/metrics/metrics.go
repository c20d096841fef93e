package metrics

import (
	"context"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests metric.Int64Counter
	HTTPDuration metric.Float64Histogram
	PostViews    metric.Int64Counter
	Reactions    metric.Int64Counter
	Comments     metric.Int64Counter
}

// Setup registers the blog instruments on a fresh Prometheus registry and
// returns the handler that serves it.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"blog_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"blog_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PostViews, err = meter.Int64Counter(
		"blog_post_views_total",
		metric.WithDescription("Views that incremented a post's view count"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Reactions, err = meter.Int64Counter(
		"blog_reactions_total",
		metric.WithDescription("Reaction changes on posts and comments"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Comments, err = meter.Int64Counter(
		"blog_comments_total",
		metric.WithDescription("Comments and replies written"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordPostView(ctx context.Context) {
	m.PostViews.Add(ctx, 1)
}

// RecordReaction counts a reaction change; target is "post" or "comment".
func (m *Metrics) RecordReaction(ctx context.Context, target, reaction string) {
	m.Reactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("reaction", reaction),
	))
}

func (m *Metrics) RecordComment(ctx context.Context, reply bool) {
	m.Comments.Add(ctx, 1, metric.WithAttributes(attribute.Bool("reply", reply)))
}

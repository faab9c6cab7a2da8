package middleware

import (
	"time"

	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTP metric attribute keys
var (
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
)

// HTTPDurationBuckets are the latency buckets of http_server_request_duration_seconds
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (m httpMetrics, err error) {
	if m.requests, err = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests by route, status and ledger error code", "{request}"); err != nil {
		return m, err
	}
	if m.duration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	}); err != nil {
		return m, err
	}
	m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"))
	return m, err
}

// HTTPMetrics counts requests, their latency and the requests in flight.
// Requests refused by the ledger also carry the domain error code, so
// QUANTITY_EXCEEDED and NO_CAPACITY rates can be watched per route.
// Without a usable meter the middleware only calls Next.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return passThrough
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)
		defer m.inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := []attribute.KeyValue{
			AttrHTTPMethod.String(c.Request.Method),
			AttrHTTPRoute.String(route),
		}
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)

		attrs = append(attrs, AttrHTTPStatusCode.Int(c.Writer.Status()))
		if code := c.GetString(logger.GinErrorCodeKey); code != "" {
			attrs = append(attrs, telemetry.AttrErrorCode.String(code))
		}
		m.requests.Inc(ctx, attrs...)
	}
}

func passThrough(c *gin.Context) { c.Next() }

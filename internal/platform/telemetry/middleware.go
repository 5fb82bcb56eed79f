package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// HeaderTraceID carries the trace ID of the request span back to the caller.
const HeaderTraceID = "X-Trace-ID"

// unmatchedRoute labels requests that matched no quote route, keeping
// arbitrary 404 paths out of the route attribute.
const unmatchedRoute = "unmatched"

type requestMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

func newRequestMetrics(meter metric.Meter) (*requestMetrics, error) {
	duration, err := meter.Float64Histogram(
		"quotebook.http.request.duration",
		metric.WithDescription("Quote API request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"quotebook.http.request.total",
		metric.WithDescription("Quote API requests by route and status class"),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		"quotebook.http.request.in_flight",
		metric.WithDescription("Quote API requests being served"),
	)
	if err != nil {
		return nil, err
	}

	return &requestMetrics{duration: duration, total: total, inFlight: inFlight}, nil
}

// Middleware records request metrics and echoes the trace ID in X-Trace-ID.
// It must run after TracingMiddleware so the span is in the request context.
func Middleware() gin.HandlerFunc {
	metrics, err := newRequestMetrics(otel.Meter(InstrumentationName))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		if metrics == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		route := routeOf(c)
		base := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)

		metrics.inFlight.Add(ctx, 1, base)
		defer metrics.inFlight.Add(ctx, -1, base)

		c.Next()

		status := c.Writer.Status()
		done := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.String("http.status_class", strconv.Itoa(status/100)+"xx"),
		)
		metrics.duration.Record(ctx, time.Since(start).Seconds(), done)
		metrics.total.Add(ctx, 1, done)
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}

	return unmatchedRoute
}

// TracingMiddleware starts a server span per request.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

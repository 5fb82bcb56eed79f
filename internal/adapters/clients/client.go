package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotebook/internal/adapters/clients"

	defaultTimeout = 30 * time.Second

	// ContentTypeJSON is sent with every request body.
	ContentTypeJSON = "application/json; charset=UTF-8"
)

// Config configures an HTTP client instance.
type Config struct {
	// BaseURL is prefixed to every request path.
	BaseURL string

	// ServiceName identifies the downstream service in logs, spans and metrics.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff may exceed it.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	Logger *slog.Logger
}

// Client is an instrumented HTTP client for the remote quote source.
// Every request goes through the circuit breaker, is retried with jittered
// exponential backoff on network and 5xx failures, carries the inbound
// request and correlation IDs, and is traced and measured.
type Client struct {
	http        *http.Client
	baseURL     string
	serviceName string
	cfg         *Config
	logger      *slog.Logger
	cb          *CircuitBreaker

	tracer          trace.Tracer
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// New creates a client from cfg.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", cfg.ServiceName),
	)

	cb := NewCircuitBreaker(cfg.Circuit)
	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requestTotal, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Total number of HTTP client requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Transport.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.Transport.MaxIdleConns
	}
	if cfg.Transport.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.Transport.MaxIdleConnsPerHost
	}
	if cfg.Transport.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = cfg.Transport.IdleConnTimeout
	}

	return &Client{
		http:            &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName:     cfg.ServiceName,
		cfg:             cfg,
		logger:          logger,
		cb:              cb,
		tracer:          otel.Tracer(instrumentationName),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// Do executes req with circuit breaking, retries, tracing and logging.
// Only idempotent methods are retried; a POST is sent exactly once.
// Retried requests with a body must set GetBody so the body can be resent.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := c.logger
	if ctxLogger := logging.FromContextOr(ctx, nil); ctxLogger != nil {
		logger = ctxLogger.With(slog.String("downstream", c.serviceName))
	}
	logger = logger.With(
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.cb.Allow() {
		c.recordMetrics(ctx, req.Method, 0, time.Since(start), "circuit_open")
		logger.WarnContext(ctx, "request blocked by circuit breaker")
		return nil, ErrCircuitOpen
	}

	c.injectHeaders(ctx, req)

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("HTTP %s %s", req.Method, c.serviceName),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.serviceName),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.executeWithRetry(ctx, req, logger)

	return c.recordResult(ctx, req, resp, err, span, logger, start)
}

func (c *Client) executeWithRetry(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	attempts := c.cfg.Retry.MaxAttempts
	if !isIdempotent(req.Method) {
		attempts = 1
	}

	for attempt := range attempts {
		if attempt > 0 {
			if err := c.waitForRetry(ctx, attempt, logger); err != nil {
				return nil, err
			}

			if err := rewindBody(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			if !isRetryableError(err) {
				return nil, err
			}

			logger.DebugContext(ctx, "request failed with retryable error",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
			lastErr = err

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			logger.DebugContext(ctx, "request failed with server error",
				slog.Int("attempt", attempt+1),
				slog.Int("status", resp.StatusCode),
			)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)

			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func (c *Client) waitForRetry(ctx context.Context, attempt int, logger *slog.Logger) error {
	backoff := c.calculateBackoff(attempt)
	logger.DebugContext(ctx, "retrying request",
		slog.Int("attempt", attempt+1),
		slog.Duration("backoff", backoff),
	)

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func rewindBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}
	req.Body = body

	return nil
}

func (c *Client) recordResult(
	ctx context.Context,
	req *http.Request,
	resp *http.Response,
	err error,
	span trace.Span,
	logger *slog.Logger,
	start time.Time,
) (*http.Response, error) {
	duration := time.Since(start)

	if err != nil {
		c.cb.RecordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.recordMetrics(ctx, req.Method, 0, duration, "error")
		logger.ErrorContext(ctx, "request failed",
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	c.recordMetrics(ctx, req.Method, resp.StatusCode, duration, fmt.Sprintf("%dxx", resp.StatusCode/100))

	logger.DebugContext(ctx, "request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	return resp, nil
}

// Get performs a GET request against path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.Do(ctx, req)
}

// PostJSON POSTs body, already encoded as JSON, to path.
func (c *Client) PostJSON(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", ContentTypeJSON)
	req.Header.Set("Accept", "application/json")

	return c.Do(ctx, req)
}

// ServiceName returns the downstream name this client was built for.
func (c *Client) ServiceName() string {
	return c.serviceName
}

// CircuitState returns the current state of the circuit breaker.
func (c *Client) CircuitState() State {
	return c.cb.State()
}

func (c *Client) injectHeaders(ctx context.Context, req *http.Request) {
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set(middleware.HeaderCorrelationID, correlationID)
	}
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// calculateBackoff returns initial*multiplier^attempt capped at the max
// interval, with symmetric jitter of JitterFactor applied.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.cfg.Retry.InitialInterval) * math.Pow(c.cfg.Retry.Multiplier, float64(attempt))
	backoff = math.Min(backoff, float64(c.cfg.Retry.MaxInterval))

	jitter := backoff * c.cfg.Retry.JitterFactor * (rand.Float64()*2 - 1) //nolint:gosec // jitter only
	return time.Duration(backoff + jitter)
}

func (c *Client) recordMetrics(ctx context.Context, method string, statusCode int, duration time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.serviceName),
		attribute.String("result", result),
	}

	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	c.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	c.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// isRetryableError reports whether err is a network failure worth retrying.
// Context cancellation never is.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

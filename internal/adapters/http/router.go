package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains the dependencies of the router.
type RouterConfig struct {
	Logger    *slog.Logger
	AppConfig *config.AppConfig

	// Session configures the visitor cookie of the API routes.
	Session config.SessionConfig

	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler

	// Timeout is the deadline of API requests. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures middleware and routes on engine.
// Global middleware, first to last:
//  1. Recovery
//  2. Request ID
//  3. Correlation ID
//  4. OpenTelemetry tracing and request metrics
//  5. Logging (skips /-/ paths)
//
// Routes:
//   - /-/ health, build and metrics endpoints
//   - /api/v1/ quote endpoints, with the session cookie and request timeout
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.AppConfig.Name),
		telemetry.Middleware(),
		middleware.Logging(cfg.Logger),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")
	apiV1.Use(middleware.Session(cfg.Session))
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterQuoteRoutes(apiV1)
	}
}

// NewDefaultRouterConfig creates a RouterConfig from the loaded configuration.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	quoteHandler *handlers.QuoteHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		Session:       cfg.Session,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		Timeout:       DefaultRequestTimeout,
	}
}

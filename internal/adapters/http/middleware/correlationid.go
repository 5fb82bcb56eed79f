package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	// HeaderCorrelationID is the header name for correlation ID.
	// Unlike the request ID it is kept across service hops.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyCorrelationID is the gin context key for the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

// CorrelationID returns middleware that propagates or starts a correlation ID.
func CorrelationID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName: HeaderCorrelationID,
		contextKey: ContextKeyCorrelationID,
		enrichers:  []enricher{ContextWithCorrelationID, logging.WithCorrelationID},
	})
}

// GetCorrelationID returns the correlation ID of c, or "".
func GetCorrelationID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyCorrelationID)
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"
)

// RequestID returns middleware that extracts or generates a request ID.
// The ID is echoed in the response, attached to the context logger, and
// stored for RequestIDFromContext.
func RequestID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName: HeaderRequestID,
		contextKey: ContextKeyRequestID,
		enrichers:  []enricher{ContextWithRequestID, logging.WithRequestID},
	})
}

// GetRequestID returns the request ID of c, or "".
func GetRequestID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyRequestID)
}

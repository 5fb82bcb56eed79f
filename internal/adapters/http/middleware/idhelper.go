package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type enricher func(ctx context.Context, id string) context.Context

type idMiddlewareConfig struct {
	headerName string
	contextKey string
	enrichers  []enricher
}

// createIDMiddleware takes the ID from the request header or generates a
// UUID, echoes it in the response, and stores it in both the gin context and
// the request context.
func createIDMiddleware(cfg idMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cfg.headerName)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(cfg.contextKey, id)
		c.Header(cfg.headerName, id)

		ctx := c.Request.Context()
		for _, enrich := range cfg.enrichers {
			ctx = enrich(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func getIDFromContext(c *gin.Context, key string) string {
	if id, exists := c.Get(key); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}

	return ""
}

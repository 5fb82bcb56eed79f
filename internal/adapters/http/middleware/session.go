package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// ContextKeySessionID is the gin context key for the visitor session ID.
const ContextKeySessionID = "session_id"

// Session returns middleware that identifies the visitor by a cookie holding
// a UUID. A missing or malformed cookie starts a new session. The cookie is
// refreshed on every request so an active session does not expire.
func Session(cfg config.SessionConfig) gin.HandlerFunc {
	maxAge := int(cfg.TTL.Seconds())

	return func(c *gin.Context) {
		id, err := c.Cookie(cfg.Cookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.Cookie, id, maxAge, "/", "", cfg.Secure, true)
		c.Set(ContextKeySessionID, id)

		ctx := ContextWithSessionID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(logging.WithSessionID(ctx, id))

		c.Next()
	}
}

// GetSessionID returns the session ID of c, or "".
func GetSessionID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeySessionID)
}

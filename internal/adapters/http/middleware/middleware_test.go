package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(*http.Request) string
	}{
		{
			name:       "request id",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    func(r *http.Request) string { return RequestIDFromContext(r.Context()) },
		},
		{
			name:       "correlation id",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    func(r *http.Request) string { return CorrelationIDFromContext(r.Context()) },
		},
	}

	for _, tt := range tests {
		for _, incoming := range []string{"", "upstream-123"} {
			t.Run(tt.name+"/"+incoming, func(t *testing.T) {
				t.Parallel()

				var ginID, ctxID string

				router := gin.New()
				router.Use(tt.middleware)
				router.GET("/test", func(c *gin.Context) {
					ginID = tt.fromGin(c)
					ctxID = tt.fromCtx(c.Request)
					c.Status(http.StatusOK)
				})

				req := httptest.NewRequest(http.MethodGet, "/test", nil)
				if incoming != "" {
					req.Header.Set(tt.header, incoming)
				}
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)

				require.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, w.Header().Get(tt.header), ginID)
				assert.Equal(t, ginID, ctxID)

				if incoming != "" {
					assert.Equal(t, incoming, ginID)
				} else {
					assert.NoError(t, uuid.Validate(ginID))
				}
			})
		}
	}
}

func TestRequestID_EnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer

	router := gin.New()
	router.Use(func(c *gin.Context) {
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	})
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("handled")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func sessionRouter(t *testing.T, cfg config.SessionConfig, captured *string) *gin.Engine {
	t.Helper()

	router := gin.New()
	router.Use(Session(cfg))
	router.GET("/test", func(c *gin.Context) {
		*captured = GetSessionID(c)
		assert.Equal(t, *captured, SessionIDFromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	return router
}

func TestSession(t *testing.T) {
	cfg := config.SessionConfig{Cookie: "quote_session", TTL: time.Hour, Secure: true}

	t.Run("new visitor gets a session cookie", func(t *testing.T) {
		var id string
		w := httptest.NewRecorder()
		sessionRouter(t, cfg, &id).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		require.NoError(t, uuid.Validate(id))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "quote_session", cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
		assert.Equal(t, 3600, cookies[0].MaxAge)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("existing session is kept", func(t *testing.T) {
		existing := uuid.NewString()

		var id string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: "quote_session", Value: existing})
		sessionRouter(t, cfg, &id).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, existing, id)
	})

	t.Run("malformed cookie is replaced", func(t *testing.T) {
		var id string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: "quote_session", Value: "not-a-uuid"})
		sessionRouter(t, cfg, &id).ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, "not-a-uuid", id)
		assert.NoError(t, uuid.Validate(id))
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		skip      []string
		wantLevel string
	}{
		{"success", "/api/v1/quotes?category=Life", http.StatusOK, nil, "INFO"},
		{"client error", "/api/v1/quotes", http.StatusBadRequest, nil, "WARN"},
		{"server error", "/api/v1/quotes", http.StatusInternalServerError, nil, "ERROR"},
		{"health path", "/-/live", http.StatusOK, nil, ""},
		{"skipped path", "/favicon.ico", http.StatusOK, []string{"/favicon.ico"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			router := gin.New()
			router.Use(Logging(logger, tt.skip...))
			router.NoRoute(func(c *gin.Context) { c.Status(tt.status) })

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if tt.wantLevel == "" {
				assert.Empty(t, buf.String())
				return
			}

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			assert.Contains(t, lines[0], `"msg":"request started"`)
			assert.Contains(t, lines[1], `"level":"`+tt.wantLevel+`"`)
			assert.Contains(t, lines[1], `"path":"`+tt.path+`"`)
		})
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/panic", func(c *gin.Context) { panic("something went wrong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"an internal error occurred"}}`, w.Body.String())
}

func TestTimeout_SetsContextDeadline(t *testing.T) {
	var remaining time.Duration

	router := gin.New()
	router.Use(Timeout(time.Minute))
	router.GET("/test", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		remaining = time.Until(deadline)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Greater(t, remaining, 50*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)
}

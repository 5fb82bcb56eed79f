package acl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

func testConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: "remote",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 2,
		},
	}
}

func response(status int, body string) *http.Response {
	req, _ := http.NewRequest(http.MethodGet, "http://remote/posts", http.NoBody)

	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func TestMapHTTPError_Status(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
		msg    string
	}{
		{"not found", http.StatusNotFound, "", domain.ErrNotFound, "/posts"},
		{"conflict", http.StatusConflict, `{"message":"exists"}`, domain.ErrConflict, "exists"},
		{"bad request", http.StatusBadRequest, "", domain.ErrValidation, "invalid request"},
		{
			"validation details", http.StatusUnprocessableEntity,
			`{"error":{"code":"VALIDATION_ERROR","message":"bad","details":{"title":"is required"}}}`,
			domain.ErrValidation, "title",
		},
		{"unauthorized", http.StatusUnauthorized, "", domain.ErrUnavailable, "access denied"},
		{"forbidden", http.StatusForbidden, "", domain.ErrUnavailable, "access denied"},
		{"rate limited", http.StatusTooManyRequests, "", domain.ErrUnavailable, "rate limit exceeded"},
		{"server error", http.StatusInternalServerError, "", domain.ErrUnavailable, "status 500"},
		{"bad gateway", http.StatusBadGateway, `{"error":{"message":"upstream down"}}`, domain.ErrUnavailable, "upstream down"},
		{"other 4xx", http.StatusTeapot, "", domain.ErrValidation, "status 418"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(response(tt.status, tt.body), nil, "remote", "list quotes")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMapHTTPError_ClientErrors(t *testing.T) {
	err := MapHTTPError(nil, clients.ErrCircuitOpen, "remote", "list quotes")
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "circuit breaker open during list quotes")

	err = MapHTTPError(nil, errors.Join(clients.ErrMaxRetriesExceeded, io.EOF), "remote", "create quote")
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "max retries exceeded during create quote")

	err = MapHTTPError(nil, io.ErrUnexpectedEOF, "remote", "list quotes")
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestMapHTTPError_SuccessAndNil(t *testing.T) {
	assert.NoError(t, MapHTTPError(response(http.StatusCreated, ""), nil, "remote", "create quote"))

	err := MapHTTPError(nil, nil, "remote", "list quotes")
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "no response received")
}

func TestParseErrorResponse(t *testing.T) {
	nested := ParseErrorResponse(strings.NewReader(`{"error":{"code":"NOT_FOUND","message":"not found"}}`))
	require.NotNil(t, nested)
	assert.Equal(t, "NOT_FOUND", nested.GetCode())
	assert.Equal(t, "not found", nested.GetMessage())

	flat := ParseErrorResponse(strings.NewReader(`{"code":"CONFLICT","message":"already exists"}`))
	require.NotNil(t, flat)
	assert.Equal(t, "CONFLICT", flat.GetCode())
	assert.Equal(t, "already exists", flat.GetMessage())

	assert.Nil(t, ParseErrorResponse(strings.NewReader(`not json`)))
	assert.Nil(t, ParseErrorResponse(strings.NewReader(`{}`)))
	assert.Nil(t, ParseErrorResponse(nil))
}

func TestDecodeResponse(t *testing.T) {
	got, err := DecodeResponse[[]post](io.NopCloser(strings.NewReader(`[{"id":1,"title":"t"}]`)))
	require.NoError(t, err)
	assert.Equal(t, []post{{ID: 1, Title: "t"}}, *got)

	_, err = DecodeResponse[[]post](io.NopCloser(strings.NewReader(`{`)))
	assert.ErrorContains(t, err, "decoding response")

	_, err = DecodeResponse[[]post](nil)
	assert.Error(t, err)
}

func TestTranslateSlice(t *testing.T) {
	got, err := TranslateSlice([]post{{Title: " a "}, {Title: "b"}}, translatePost)
	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{
		{Text: " a ", Category: ServerCategory},
		{Text: "b", Category: ServerCategory},
	}, got)

	_, err = TranslateSlice([]post{{Title: "a"}, {Title: " "}}, translatePost)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "translating item 1")

	empty, err := TranslateSlice([]post{}, translatePost)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("x", "title"))
	assert.True(t, domain.IsValidation(ValidateRequired("", "title")))
}

func TestBaseAdapter(t *testing.T) {
	var gotType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, err := clients.New(testConfig(server.URL))
	require.NoError(t, err)

	adapter := NewBaseAdapter(client, "remote")
	assert.Equal(t, "remote", adapter.ServiceName())
	assert.Same(t, client, adapter.Client())

	body, err := adapter.PostJSON(context.Background(), "/posts", map[string]string{"a": "b"}, "create")
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, clients.ContentTypeJSON, gotType)

	_, err = adapter.Get(context.Background(), "/missing", "get")
	assert.True(t, domain.IsNotFound(err))

	_, err = adapter.PostJSON(context.Background(), "/posts", make(chan int), "create")
	assert.ErrorContains(t, err, "encoding create request")
}

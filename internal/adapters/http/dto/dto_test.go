package dto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	return c, w
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := map[string]int{
		ErrorCodeNotFound:    http.StatusNotFound,
		ErrorCodeConflict:    http.StatusConflict,
		ErrorCodeValidation:  http.StatusBadRequest,
		ErrorCodeBadRequest:  http.StatusBadRequest,
		ErrorCodeUnavailable: http.StatusServiceUnavailable,
		ErrorCodeTimeout:     http.StatusGatewayTimeout,
		ErrorCodeTooLarge:    http.StatusRequestEntityTooLarge,
		ErrorCodeInternal:    http.StatusInternalServerError,
		"UNKNOWN":            http.StatusInternalServerError,
	}

	for code, want := range tests {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, want, HTTPStatusFromCode(code))
		})
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", domain.NewNotFoundError("quote", "x"), http.StatusNotFound, ErrorCodeNotFound, `quote "x" not found`},
		{"no quotes", domain.ErrNoQuotes, http.StatusNotFound, ErrorCodeNotFound, "no quotes available"},
		{"conflict", domain.NewConflictError("quote", "duplicate"), http.StatusConflict, ErrorCodeConflict, "duplicate"},
		{"validation", domain.NewValidationError("text", "is required"), http.StatusBadRequest, ErrorCodeValidation, "text"},
		{"unavailable", domain.NewUnavailableError("remote", "down"), http.StatusServiceUnavailable, ErrorCodeUnavailable, "down"},
		{"wrapped", fmt.Errorf("sync: %w", domain.ErrUnavailable), http.StatusServiceUnavailable, ErrorCodeUnavailable, "unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout, "timeout"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, ErrorCodeInternal, "an internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMsg)
		})
	}

	status, resp := MapDomainError(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, resp)
}

func TestMapDomainError_ValidationDetails(t *testing.T) {
	_, resp := MapDomainError(domain.NewValidationError("category", "is required"))

	assert.Equal(t, map[string]string{"category": "is required"}, resp.Error.Details)

	_, resp = MapDomainError(domain.NewValidationError("", "not a JSON array"))
	assert.Nil(t, resp.Error.Details)
}

func TestHandleError(t *testing.T) {
	c, w := testContext(http.MethodGet, "")

	HandleError(c, domain.ErrNoQuotes)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"no quotes available"}}`, w.Body.String())
}

func TestGetTraceID(t *testing.T) {
	c, w := testContext(http.MethodGet, "")
	assert.Empty(t, GetTraceID(c))

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	traceID := span.SpanContext().TraceID().String()
	assert.Equal(t, traceID, GetTraceID(c))

	HandleError(c, domain.NewUnavailableError("remote", "down"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, traceID, resp.TraceID)
}

func TestRespondWithErrorCode(t *testing.T) {
	c, w := testContext(http.MethodGet, "")

	RespondWithErrorCode(c, ErrorCodeBadRequest, "file is required")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"code":"BAD_REQUEST","message":"file is required"}}`, w.Body.String())
}

func TestRespondWithValidationErrors(t *testing.T) {
	c, w := testContext(http.MethodGet, "")

	RespondWithValidationErrors(c, map[string]string{"text": "must not be empty"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"code":"VALIDATION_ERROR","message":"request validation failed","details":{"text":"must not be empty"}}}`,
		w.Body.String())
}

func TestBindAndValidate_QuoteRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		fields  map[string]string
	}{
		{name: "valid", body: `{"text":"Be here now.","category":"Life"}`},
		{name: "malformed", body: `{"text":`, wantErr: ErrBinding},
		{
			name:    "blank text",
			body:    `{"text":"   ","category":"Life"}`,
			wantErr: ErrValidation,
			fields:  map[string]string{"text": "must not be empty"},
		},
		{
			name:    "missing both",
			body:    `{}`,
			wantErr: ErrValidation,
			fields:  map[string]string{"text": "must not be empty", "category": "must not be empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testContext(http.MethodPost, tt.body)

			var req QuoteRequest
			err := BindAndValidate(c, &req)

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, QuoteRequest{Text: "Be here now.", Category: "Life"}, req)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			if tt.fields != nil {
				assert.True(t, IsValidationError(err))
				assert.Equal(t, tt.fields, ValidationErrors(err))
			}
		})
	}
}

func TestBindQueryAndValidate(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?category=Life", nil)

	var q FilterQuery
	require.NoError(t, BindQueryAndValidate(c, &q))
	assert.Equal(t, "Life", q.Category)
}

func TestValidate_Messages(t *testing.T) {
	type sample struct {
		ID    string `json:"id"    validate:"uuid"`
		Name  string `json:"name"  validate:"min=3"`
		Count int    `json:"count" validate:"max=2"`
		Kind  string `json:"kind"  validate:"oneof=a b"`
	}

	err := Validate(sample{ID: "nope", Name: "ab", Count: 3, Kind: "c"})
	require.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, map[string]string{
		"id":    "must be a valid UUID",
		"name":  "must be at least 3 characters",
		"count": "must be at most 2",
		"kind":  "must be one of: a b",
	}, ValidationErrors(err))

	assert.NoError(t, Validate(sample{ID: "", Name: "abc", Count: 1, Kind: "a"}))
	assert.Empty(t, ValidationErrors(errors.New("other")))
}

func TestConverters(t *testing.T) {
	quotes := []domain.Quote{{Text: "a", Category: "X"}, {Text: "b", Category: "Y"}}

	list := NewQuoteListResponse(quotes)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, []QuoteResponse{{Text: "a", Category: "X"}, {Text: "b", Category: "Y"}}, list.Quotes)

	empty := NewQuoteListResponse(nil)
	assert.NotNil(t, empty.Quotes)
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"quotes":[],"count":0}`, string(data))

	filter := NewFilterResponse(app.FilterResult{Category: "X", Quotes: quotes[:1]})
	assert.Equal(t, FilterResponse{Category: "X", Quotes: []QuoteResponse{{Text: "a", Category: "X"}}, Count: 1}, filter)

	imp := NewImportResponse(app.ImportResult{
		Added:    quotes[:1],
		Rejected: []app.Rejection{{Index: 1, Text: "a", Reason: "duplicate"}},
		Total:    3,
	})
	assert.Equal(t, []RejectionResponse{{Index: 1, Text: "a", Reason: "duplicate"}}, imp.Rejected)
	assert.Equal(t, 3, imp.Total)
	assert.Len(t, imp.Added, 1)

	sync := NewSyncResponse(app.SyncResult{Fetched: 100, Before: 3, After: 103, Changed: true})
	assert.Equal(t, SyncResponse{Fetched: 100, Before: 3, After: 103, Changed: true}, sync)
}

package acl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

func setupPostsSource(t *testing.T, handler http.HandlerFunc) *PostsSource {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := clients.New(testConfig(server.URL))
	require.NoError(t, err)

	return NewPostsSource(PostsSourceConfig{
		Client: client,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNewPostsSource(t *testing.T) {
	assert.Panics(t, func() { NewPostsSource(PostsSourceConfig{}) })

	client, err := clients.New(testConfig("http://remote"))
	require.NoError(t, err)

	s := NewPostsSource(PostsSourceConfig{Client: client})
	assert.Equal(t, DefaultPostsPath, s.path)
	assert.Equal(t, "remote", s.Name())
	assert.NotNil(t, s.logger)
}

func TestPostsSource_ListQuotes(t *testing.T) {
	s := setupPostsSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/posts", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"userId":1,"id":1,"title":"first","body":"ignored"},
			{"userId":1,"id":2,"title":"  ","body":"blank"},
			{"userId":1,"id":3,"title":"second","body":"ignored"},
			{"userId":1,"id":4,"title":"  padded  ","body":"kept as is"}
		]`))
	})

	got, err := s.ListQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{
		{Text: "first", Category: "Server"},
		{Text: "second", Category: "Server"},
		{Text: "  padded  ", Category: "Server"},
	}, got)
}

func TestPostsSource_ListQuotesEmpty(t *testing.T) {
	s := setupPostsSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	got, err := s.ListQuotes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostsSource_ListQuotesErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			check:   domain.IsUnavailable,
		},
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			check:   domain.IsNotFound,
		},
		{
			name:    "not an array",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"title":"x"}`)) },
			check:   domain.IsUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupPostsSource(t, tt.handler)

			_, err := s.ListQuotes(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestPostsSource_CreateQuote(t *testing.T) {
	var got domain.Quote

	s := setupPostsSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json; charset=UTF-8", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":101}`))
	})

	err := s.CreateQuote(context.Background(), domain.Quote{Text: "new", Category: "Mine"})
	require.NoError(t, err)
	assert.Equal(t, domain.Quote{Text: "new", Category: "Mine"}, got)
}

func TestPostsSource_CreateQuoteFailure(t *testing.T) {
	s := setupPostsSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := s.CreateQuote(context.Background(), domain.Quote{Text: "new", Category: "Mine"})
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestPostsSource_CreateQuoteIsPostedOnce(t *testing.T) {
	var posts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.Retry.MaxAttempts = 3

	client, err := clients.New(cfg)
	require.NoError(t, err)

	s := NewPostsSource(PostsSourceConfig{
		Client: client,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	err = s.CreateQuote(context.Background(), domain.Quote{Text: "new", Category: "Mine"})
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	assert.Equal(t, int32(1), posts.Load())
}

func TestPostsSource_Check(t *testing.T) {
	s := setupPostsSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	require.NoError(t, s.Check(context.Background()))

	for range 5 {
		_, _ = s.ListQuotes(context.Background())
	}

	err := s.Check(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

package acl

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	// ServerCategory is the category given to every quote read from the remote.
	ServerCategory = "Server"

	// DefaultPostsPath is the collection path of the placeholder resource.
	DefaultPostsPath = "/posts"
)

// PostsSourceConfig configures a PostsSource.
type PostsSourceConfig struct {
	// Client must have its BaseURL set to the remote host.
	Client *clients.Client

	// Path is the collection path. Defaults to DefaultPostsPath.
	Path string

	Logger *slog.Logger
}

// PostsSource implements ports.RemoteQuoteSource over a generic list/create
// resource of posts. A post's title becomes the quote text.
type PostsSource struct {
	BaseAdapter

	path   string
	logger *slog.Logger
}

// post is the remote DTO.
type post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// NewPostsSource creates the adapter. Panics if Client is nil.
func NewPostsSource(cfg PostsSourceConfig) *PostsSource {
	if cfg.Client == nil {
		panic("PostsSource: Client is required")
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPostsPath
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PostsSource{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		path:        path,
		logger:      logger.With(slog.String("component", "acl.PostsSource")),
	}
}

// ListQuotes fetches every post and translates it to a quote in the
// ServerCategory. Posts with a blank title are skipped.
func (s *PostsSource) ListQuotes(ctx context.Context) ([]domain.Quote, error) {
	logger := logging.FromContextOr(ctx, s.logger)
	logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", s.path))

	body, err := s.Get(ctx, s.path, "list quotes")
	if err != nil {
		return nil, err
	}

	posts, err := DecodeResponse[[]post](body)
	if err != nil {
		return nil, domain.NewUnavailableError(s.ServiceName(), err.Error())
	}

	valid := slices.DeleteFunc(*posts, func(p post) bool {
		return strings.TrimSpace(p.Title) == ""
	})
	if skipped := len(*posts) - len(valid); skipped > 0 {
		logger.DebugContext(ctx, "skipped posts without a title", slog.Int("count", skipped))
	}

	quotes, err := TranslateSlice(valid, translatePost)
	if err != nil {
		return nil, domain.NewUnavailableError(s.ServiceName(), err.Error())
	}

	logger.DebugContext(ctx, "fetched quotes from server", slog.Int("count", len(quotes)))

	return quotes, nil
}

// CreateQuote posts the quote as JSON. The response body is only logged.
func (s *PostsSource) CreateQuote(ctx context.Context, quote domain.Quote) error {
	logger := logging.FromContextOr(ctx, s.logger)

	body, err := s.PostJSON(ctx, s.path, quote, "create quote")
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	created, err := io.ReadAll(body)
	if err != nil {
		logger.WarnContext(ctx, "reading create response", slog.Any("error", err))
		return nil
	}

	logger.InfoContext(ctx, "quote posted to server",
		slog.String("text", quote.Text),
		slog.String("response", string(created)),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (s *PostsSource) Name() string {
	return s.ServiceName()
}

// Check reports the remote as unavailable while the circuit breaker is open.
// It never contacts the remote.
func (s *PostsSource) Check(_ context.Context) error {
	if state := s.Client().CircuitState(); state == clients.StateOpen {
		return domain.NewUnavailableError(s.ServiceName(), "circuit breaker "+state.String())
	}

	return nil
}

// translatePost keeps the title verbatim since quote text is the merge key.
func translatePost(p *post) (domain.Quote, error) {
	if err := ValidateRequired(strings.TrimSpace(p.Title), "title"); err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{Text: p.Title, Category: ServerCategory}, nil
}

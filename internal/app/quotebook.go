// Package app contains application services that orchestrate use cases.
// This is the application layer: it owns the quote collection and
// coordinates the domain rules with storage and the remote source through
// ports.
//
// What does NOT belong here:
//   - HTTP or CLI specifics (that's adapters and cmd)
//   - SQL or wire formats of the remote (that's adapters)
//   - The merge and validation rules themselves (that's the domain layer)
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Storage keys.
const (
	KeyQuotes           = "quotes"
	KeySelectedCategory = "selectedCategory"
	KeyLastViewed       = "lastViewedQuote"
)

// Metric sources.
const (
	SourceAdd    = "add"
	SourceImport = "import"
)

// QuoteBook owns the local quote collection. All reads and writes of the
// collection go through its mutex; the remote fetch of a sync does not.
type QuoteBook struct {
	mu     sync.RWMutex
	quotes []domain.Quote

	store    ports.KeyValueStore
	sessions ports.SessionStore
	remote   ports.RemoteQuoteSource
	metrics  ports.QuoteMetrics
	logger   *slog.Logger
	intn     func(n int) int

	posts sync.WaitGroup
}

// QuoteBookConfig contains the dependencies of a QuoteBook.
type QuoteBookConfig struct {
	// Store is required.
	Store ports.KeyValueStore

	// Sessions is optional. Without it Random does not record the last
	// viewed quote and LastViewed always reports not found.
	Sessions ports.SessionStore

	// Remote is optional. Without it Add does not publish and Sync fails
	// with ErrUnavailable.
	Remote ports.RemoteQuoteSource

	Metrics ports.QuoteMetrics
	Logger  *slog.Logger

	// IntN picks a random index in [0, n). Defaults to math/rand/v2.IntN.
	IntN func(n int) int
}

// NewQuoteBook creates an empty QuoteBook. Call Load before serving.
func NewQuoteBook(cfg QuoteBookConfig) *QuoteBook {
	if cfg.Store == nil {
		panic("app: QuoteBookConfig.Store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	intn := cfg.IntN
	if intn == nil {
		intn = rand.IntN
	}

	return &QuoteBook{
		quotes:   []domain.Quote{},
		store:    cfg.Store,
		sessions: cfg.Sessions,
		remote:   cfg.Remote,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "app.QuoteBook")),
		intn:     intn,
	}
}

func (b *QuoteBook) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, b.logger)
}

// Load reads the persisted collection. A collection that was never persisted
// is seeded with the default quotes, which are persisted immediately. A
// persisted empty array stays empty. Undecodable data is an error.
func (b *QuoteBook) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.store.Get(ctx, KeyQuotes)
	if domain.IsNotFound(err) {
		seed := domain.DefaultQuotes()
		if err := b.persist(ctx, seed); err != nil {
			return fmt.Errorf("seeding default quotes: %w", err)
		}

		b.quotes = seed
		b.log(ctx).InfoContext(ctx, "seeded default quotes", slog.Int("count", len(seed)))

		return nil
	}
	if err != nil {
		return fmt.Errorf("loading quotes: %w", err)
	}

	var quotes []domain.Quote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return fmt.Errorf("decoding persisted quotes: %w", err)
	}

	b.quotes = domain.Clone(quotes)
	b.log(ctx).InfoContext(ctx, "loaded quotes", slog.Int("count", len(b.quotes)))

	return nil
}

// List returns a copy of the collection in order.
func (b *QuoteBook) List() []domain.Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return domain.Clone(b.quotes)
}

// Len returns the number of quotes.
func (b *QuoteBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.quotes)
}

// Categories returns the distinct categories in first-seen order.
func (b *QuoteBook) Categories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return domain.Categories(b.quotes)
}

// Random returns a uniformly chosen quote and remembers it as the session's
// last viewed quote. Failing to remember it is logged, not returned.
func (b *QuoteBook) Random(ctx context.Context, sessionID string) (domain.Quote, error) {
	b.mu.RLock()
	if len(b.quotes) == 0 {
		b.mu.RUnlock()
		return domain.Quote{}, domain.ErrNoQuotes
	}
	q := b.quotes[b.intn(len(b.quotes))]
	b.mu.RUnlock()

	if b.sessions != nil && sessionID != "" {
		data, err := json.Marshal(q)
		if err == nil {
			err = b.sessions.Set(ctx, sessionID, KeyLastViewed, data)
		}
		if err != nil {
			b.log(ctx).WarnContext(ctx, "failed to remember last viewed quote", slog.Any("error", err))
		}
	}

	return q, nil
}

// LastViewed returns the last quote Random served to the session.
func (b *QuoteBook) LastViewed(ctx context.Context, sessionID string) (domain.Quote, error) {
	if b.sessions == nil || sessionID == "" {
		return domain.Quote{}, domain.NewNotFoundError("last viewed quote", "")
	}

	data, err := b.sessions.Get(ctx, sessionID, KeyLastViewed)
	if domain.IsNotFound(err) {
		return domain.Quote{}, domain.NewNotFoundError("last viewed quote", "")
	}
	if err != nil {
		return domain.Quote{}, fmt.Errorf("reading last viewed quote: %w", err)
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("decoding last viewed quote: %w", err)
	}

	return q, nil
}

// Add validates and appends a quote, persists the collection and publishes
// the quote to the remote in the background. On any error the collection is
// unchanged. Publish failures are only logged.
func (b *QuoteBook) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	b.mu.Lock()

	q, err := domain.NewQuote(text, category, b.quotes)
	if err != nil {
		b.mu.Unlock()
		b.metrics.QuoteRejected(SourceAdd, rejectReason(err))
		return domain.Quote{}, err
	}

	next := append(domain.Clone(b.quotes), q)
	if err := b.persist(ctx, next); err != nil {
		b.mu.Unlock()
		return domain.Quote{}, fmt.Errorf("saving quotes: %w", err)
	}
	b.quotes = next

	b.mu.Unlock()

	b.metrics.QuoteAdded(SourceAdd)
	b.log(ctx).InfoContext(ctx, "quote added", slog.String("category", q.Category))

	b.publish(ctx, q)

	return q, nil
}

func (b *QuoteBook) publish(ctx context.Context, q domain.Quote) {
	if b.remote == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	logger := b.log(ctx)

	b.posts.Add(1)
	go func() {
		defer b.posts.Done()

		if err := b.remote.CreateQuote(ctx, q); err != nil {
			logger.WarnContext(ctx, "failed to publish quote to remote", slog.Any("error", err))
			return
		}

		logger.DebugContext(ctx, "published quote to remote")
	}()
}

// Wait blocks until background publishes started by Add have finished.
func (b *QuoteBook) Wait() {
	b.posts.Wait()
}

// FilterResult is the outcome of Filter.
type FilterResult struct {
	Category string         `json:"category"`
	Quotes   []domain.Quote `json:"quotes"`
}

// Filter returns the quotes in category and remembers category as the
// selected one. An empty category reuses the remembered selection.
func (b *QuoteBook) Filter(ctx context.Context, category string) (FilterResult, error) {
	if category == "" {
		selected, err := b.SelectedCategory(ctx)
		if err != nil {
			return FilterResult{}, err
		}
		category = selected
	} else if err := b.store.Set(ctx, KeySelectedCategory, []byte(category)); err != nil {
		return FilterResult{}, fmt.Errorf("saving selected category: %w", err)
	}

	b.mu.RLock()
	quotes := domain.FilterByCategory(b.quotes, category)
	b.mu.RUnlock()

	return FilterResult{Category: category, Quotes: quotes}, nil
}

// SelectedCategory returns the remembered category filter, CategoryAll if
// none was ever selected.
func (b *QuoteBook) SelectedCategory(ctx context.Context) (string, error) {
	data, err := b.store.Get(ctx, KeySelectedCategory)
	if domain.IsNotFound(err) || (err == nil && len(data) == 0) {
		return domain.CategoryAll, nil
	}
	if err != nil {
		return "", fmt.Errorf("loading selected category: %w", err)
	}

	return string(data), nil
}

// persist writes quotes under KeyQuotes. Callers hold b.mu.
func (b *QuoteBook) persist(ctx context.Context, quotes []domain.Quote) error {
	data, err := json.Marshal(domain.Clone(quotes))
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	return b.store.Set(ctx, KeyQuotes, data)
}

func rejectReason(err error) string {
	switch {
	case domain.IsConflict(err):
		return "duplicate"
	case domain.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

type noopMetrics struct{}

func (noopMetrics) QuoteAdded(string) {}

func (noopMetrics) QuoteRejected(string, string) {}

func (noopMetrics) SyncCompleted(bool, int) {}

func (noopMetrics) SyncFailed() {}

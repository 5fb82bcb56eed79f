// Package bootstrap builds the adapters shared by the quote service and the
// quotectl CLI from the loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// LoadConfig loads and validates configuration for profile. An empty
// profile means "local".
func LoadConfig(profile string) (*config.Config, error) {
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) *slog.Logger {
	return logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
}

// Storage is the durable store selected by storage.driver.
type Storage struct {
	Store ports.KeyValueStore

	// Checker reports store health. Nil for the memory driver.
	Checker ports.HealthChecker

	close func() error
}

// Close releases the underlying store.
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}

	return s.close()
}

// OpenStorage opens the store named by cfg.Driver.
func OpenStorage(cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return &Storage{Store: memory.NewStore()}, nil

	case config.StorageSQLite:
		store, err := sqlite.Open(sqlite.Config{Path: cfg.Path})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}

		return &Storage{Store: store, Checker: store, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewRemoteSource builds the resilient client and the posts adapter for the
// configured remote quote source.
func NewRemoteSource(cfg *config.Config, logger *slog.Logger) (*acl.PostsSource, error) {
	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Remote.BaseURL,
		ServiceName: cfg.Services.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating remote client: %w", err)
	}

	return acl.NewPostsSource(acl.PostsSourceConfig{
		Client: client,
		Path:   cfg.Services.Remote.Path,
		Logger: logger,
	}), nil
}

// Book bundles a loaded QuoteBook with the storage it persists to.
type Book struct {
	*app.QuoteBook

	Storage *Storage
	Remote  *acl.PostsSource
}

// BookConfig contains the optional collaborators of OpenBook.
type BookConfig struct {
	Sessions ports.SessionStore
	Metrics  ports.QuoteMetrics
}

// OpenBook opens storage, builds the remote source and loads the collection.
// On error nothing is left open.
func OpenBook(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts BookConfig) (*Book, error) {
	storage, err := OpenStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	remote, err := NewRemoteSource(cfg, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	book := app.NewQuoteBook(app.QuoteBookConfig{
		Store:    storage.Store,
		Sessions: opts.Sessions,
		Remote:   remote,
		Metrics:  opts.Metrics,
		Logger:   logger,
	})

	if err := book.Load(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("loading quotes: %w", err)
	}

	return &Book{QuoteBook: book, Storage: storage, Remote: remote}, nil
}

// Close waits for background publishes and closes storage.
func (b *Book) Close() error {
	b.Wait()
	return b.Storage.Close()
}

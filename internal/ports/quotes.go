// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, so the application layer
// depends on abstractions rather than on storage engines or HTTP clients.
//
// Port conventions:
//   - Context as first parameter for cancellation and deadlines
//   - Return domain types, never external DTOs
//   - Errors use domain error types (ErrNotFound, ErrUnavailable, ...)
package ports

import (
	"context"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// KeyValueStore is the durable storage port. Values are opaque bytes; the
// application decides the encoding of each key.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key has never been set.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// SessionStore is the session-scoped storage port. Values live only as long
// as the session they belong to.
type SessionStore interface {
	// Get returns the value stored under key for sessionID.
	// Returns domain.ErrNotFound if the session or key does not exist.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)

	// Set stores value under key for sessionID, creating the session if needed.
	Set(ctx context.Context, sessionID, key string, value []byte) error
}

// RemoteQuoteSource is the fetch port for the external quote resource.
type RemoteQuoteSource interface {
	// ListQuotes returns every quote the remote currently holds.
	// Returns domain.ErrUnavailable if the remote is unreachable.
	ListQuotes(ctx context.Context) ([]domain.Quote, error)

	// CreateQuote publishes a quote to the remote.
	CreateQuote(ctx context.Context, quote domain.Quote) error
}

// QuoteMetrics records quote-level events. Implementations must be safe for
// concurrent use.
type QuoteMetrics interface {
	QuoteAdded(source string)
	QuoteRejected(source, reason string)
	SyncCompleted(changed bool, size int)
	SyncFailed()
}

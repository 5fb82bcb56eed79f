package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
)

// SyncResult summarises a sync with the remote source.
type SyncResult struct {
	Fetched int  `json:"fetched"`
	Before  int  `json:"before"`
	After   int  `json:"after"`
	Changed bool `json:"changed"`
}

type syncOutcome struct {
	fetched []domain.Quote
	result  SyncResult
}

// Sync fetches the remote list and merges it into the collection, remote
// quotes first. The fetch runs without holding the collection lock; the merge
// uses whatever local state exists when the fetch returns. The collection is
// replaced and persisted only when the merged length differs from the local
// length. A failed fetch leaves local state untouched and returns
// ErrUnavailable.
func (b *QuoteBook) Sync(ctx context.Context) (SyncResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "QuoteBook.Sync")
	defer span.End()

	p := Pipeline[struct{}, []domain.Quote, *syncOutcome, SyncResult]{
		Name:    "sync",
		Perform: b.fetchRemote,
		Verify: func(_ context.Context, _ struct{}, fetched []domain.Quote) (*syncOutcome, error) {
			return &syncOutcome{fetched: fetched}, nil
		},
		Archive: b.mergeRemote,
		Respond: func(_ context.Context, _ struct{}, out *syncOutcome) (SyncResult, error) {
			return out.result, nil
		},
	}

	result, err := Run(ctx, b.log(ctx), p, struct{}{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		return SyncResult{}, err
	}

	span.SetAttributes(
		attribute.Int("quotes.fetched", result.Fetched),
		attribute.Int("quotes.before", result.Before),
		attribute.Int("quotes.after", result.After),
		attribute.Bool("quotes.changed", result.Changed),
	)

	b.metrics.SyncCompleted(result.Changed, result.After)
	b.log(ctx).InfoContext(ctx, "sync finished",
		slog.Int("fetched", result.Fetched),
		slog.Int("before", result.Before),
		slog.Int("after", result.After),
		slog.Bool("changed", result.Changed),
	)

	return result, nil
}

func (b *QuoteBook) fetchRemote(ctx context.Context, _ struct{}) ([]domain.Quote, error) {
	if b.remote == nil {
		b.metrics.SyncFailed()
		return nil, domain.NewUnavailableError("remote quote source", "not configured")
	}

	fetched, err := b.remote.ListQuotes(ctx)
	if err != nil {
		b.metrics.SyncFailed()
		b.log(ctx).ErrorContext(ctx, "error fetching quotes from server", slog.Any("error", err))

		if domain.IsUnavailable(err) {
			return nil, err
		}

		return nil, domain.NewUnavailableError("remote quote source", err.Error())
	}

	trace.SpanFromContext(ctx).AddEvent("remote quotes fetched", trace.WithAttributes(attribute.Int("count", len(fetched))))

	return fetched, nil
}

func (b *QuoteBook) mergeRemote(ctx context.Context, _ struct{}, out *syncOutcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	local := b.quotes
	merged := domain.Merge(local, out.fetched)

	out.result = SyncResult{
		Fetched: len(out.fetched),
		Before:  len(local),
		After:   len(local),
	}

	if len(merged) == len(local) {
		return nil
	}

	if err := b.persist(ctx, merged); err != nil {
		return fmt.Errorf("saving synced quotes: %w", err)
	}

	b.quotes = merged
	out.result.After = len(merged)
	out.result.Changed = true

	return nil
}

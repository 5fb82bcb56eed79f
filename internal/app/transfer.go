package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// Rejection describes an import element that was not added.
type Rejection struct {
	Index  int    `json:"index"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult summarises an import.
type ImportResult struct {
	Added    []domain.Quote `json:"added"`
	Rejected []Rejection    `json:"rejected"`
	Total    int            `json:"total"`
}

type importBatch struct {
	raw      []byte
	elements []json.RawMessage
}

type importPlan struct {
	before   []domain.Quote
	next     []domain.Quote
	added    []domain.Quote
	rejected []Rejection
}

// Import adds the quotes in data, a JSON array of {text, category} objects.
// Elements are validated in order against the collection as it grows, so a
// repeated text within the batch is rejected after its first occurrence.
// Rejected elements do not stop the batch. Data that is not a JSON array is a
// ValidationError and leaves the collection untouched.
func (b *QuoteBook) Import(ctx context.Context, data []byte) (ImportResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := Pipeline[*importBatch, *importPlan, *importPlan, ImportResult]{
		Name:     "import",
		Validate: b.decodeImport,
		Perform:  b.planImport,
		Verify:   verifyImport,
		Archive:  b.archiveImport,
		Respond: func(_ context.Context, in *importBatch, plan *importPlan) (ImportResult, error) {
			return ImportResult{
				Added:    plan.added,
				Rejected: plan.rejected,
				Total:    len(in.elements),
			}, nil
		},
	}

	result, err := Run(ctx, b.log(ctx), p, &importBatch{raw: data})
	if err != nil {
		return ImportResult{}, err
	}

	b.log(ctx).InfoContext(ctx, "import finished",
		slog.Int("added", len(result.Added)),
		slog.Int("rejected", len(result.Rejected)),
	)

	return result, nil
}

func (b *QuoteBook) decodeImport(_ context.Context, in *importBatch) error {
	trimmed := bytes.TrimSpace(in.raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return domain.NewValidationError("file", "must contain a JSON array of quotes")
	}

	if err := json.Unmarshal(trimmed, &in.elements); err != nil {
		return domain.NewValidationErrorWithValue("file", "is not valid JSON", err.Error())
	}

	return nil
}

func (b *QuoteBook) planImport(ctx context.Context, in *importBatch) (*importPlan, error) {
	plan := &importPlan{
		before:   b.quotes,
		next:     domain.Clone(b.quotes),
		added:    []domain.Quote{},
		rejected: []Rejection{},
	}

	for i, raw := range in.elements {
		var candidate domain.Quote
		if err := json.Unmarshal(raw, &candidate); err != nil {
			plan.rejected = append(plan.rejected, Rejection{Index: i, Reason: "not a quote object"})
			b.metrics.QuoteRejected(SourceImport, "invalid")
			continue
		}

		q, err := domain.NewQuote(candidate.Text, candidate.Category, plan.next)
		if err != nil {
			plan.rejected = append(plan.rejected, Rejection{Index: i, Text: candidate.Text, Reason: err.Error()})
			b.metrics.QuoteRejected(SourceImport, rejectReason(err))
			continue
		}

		logging.FromContextOr(ctx, b.logger).Log(ctx, logging.LevelTrace, "import element accepted", slog.Int("index", i))

		plan.next = append(plan.next, q)
		plan.added = append(plan.added, q)
	}

	return plan, nil
}

func verifyImport(_ context.Context, _ *importBatch, plan *importPlan) (*importPlan, error) {
	if len(plan.next) != len(plan.before)+len(plan.added) {
		return nil, fmt.Errorf("planned %d quotes, expected %d", len(plan.next), len(plan.before)+len(plan.added))
	}

	seen := make(map[string]struct{}, len(plan.next))
	for _, q := range plan.before {
		seen[q.Text] = struct{}{}
	}

	for _, q := range plan.added {
		if _, dup := seen[q.Text]; dup {
			return nil, fmt.Errorf("import would add %q twice", q.Text)
		}
		seen[q.Text] = struct{}{}
	}

	return plan, nil
}

func (b *QuoteBook) archiveImport(ctx context.Context, _ *importBatch, plan *importPlan) error {
	if len(plan.added) == 0 {
		return nil
	}

	if err := b.persist(ctx, plan.next); err != nil {
		return fmt.Errorf("saving quotes: %w", err)
	}

	b.quotes = plan.next
	for range plan.added {
		b.metrics.QuoteAdded(SourceImport)
	}

	return nil
}

// Export writes the collection to w as a two-space indented JSON array.
func (b *QuoteBook) Export(ctx context.Context, w io.Writer) error {
	quotes := b.List()

	data, err := json.MarshalIndent(quotes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	b.log(ctx).DebugContext(ctx, "exported quotes", slog.Int("count", len(quotes)))

	return nil
}

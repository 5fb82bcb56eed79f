// Package domain contains core business entities and rules.
package domain

import "strings"

// CategoryAll selects every quote when filtering.
const CategoryAll = "all"

// Quote is a text/category pair. Text is the identity key: two quotes with
// equal Text are the same quote regardless of Category.
type Quote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// DefaultQuotes returns the seed collection used when nothing has been persisted yet.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The only limit to our realization of tomorrow is our doubts of today.", Category: "Motivation"},
		{Text: "Life is 10% what happens to us and 90% how we react to it.", Category: "Life"},
		{Text: "Do what you can, with what you have, where you are.", Category: "Inspiration"},
	}
}

// NewQuote trims the inputs and validates them against the existing collection.
// Empty fields yield a ValidationError; a text already present yields a ConflictError.
func NewQuote(text, category string, existing []Quote) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if q.Text == "" {
		return Quote{}, NewValidationError("text", "is required")
	}

	if q.Category == "" {
		return Quote{}, NewValidationError("category", "is required")
	}

	if Contains(existing, q.Text) {
		return Quote{}, NewConflictErrorWithDetails("quote", "already exists", q.Text)
	}

	return q, nil
}

// Contains reports whether any quote in quotes has the given text.
func Contains(quotes []Quote, text string) bool {
	for i := range quotes {
		if quotes[i].Text == text {
			return true
		}
	}

	return false
}

// Categories returns the distinct categories of quotes in first-seen order.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	categories := make([]string, 0, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}

	return categories
}

// FilterByCategory returns the quotes in category, preserving order.
// CategoryAll and the empty string match everything.
func FilterByCategory(quotes []Quote, category string) []Quote {
	if category == "" || category == CategoryAll {
		return Clone(quotes)
	}

	filtered := make([]Quote, 0, len(quotes))

	for _, q := range quotes {
		if q.Category == category {
			filtered = append(filtered, q)
		}
	}

	return filtered
}

// Clone returns a copy of quotes that does not share backing storage.
// A nil input yields an empty, non-nil slice.
func Clone(quotes []Quote) []Quote {
	out := make([]Quote, len(quotes))
	copy(out, quotes)

	return out
}

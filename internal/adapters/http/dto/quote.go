package dto

import (
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// QuoteRequest is the body of POST /quotes.
type QuoteRequest struct {
	Text     string `json:"text"     validate:"notempty"`
	Category string `json:"category" validate:"notempty"`
}

// FilterQuery is the query of GET /quotes/filter.
type FilterQuery struct {
	Category string `form:"category"`
}

// QuoteResponse is a single quote.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// QuoteListResponse is a list of quotes.
type QuoteListResponse struct {
	Quotes []QuoteResponse `json:"quotes"`
	Count  int             `json:"count"`
}

// FilterResponse is the result of a category filter.
type FilterResponse struct {
	Category string          `json:"category"`
	Quotes   []QuoteResponse `json:"quotes"`
	Count    int             `json:"count"`
}

// CategoriesResponse lists the known categories and the persisted selection.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// RejectionResponse describes an import element that was not added.
type RejectionResponse struct {
	Index  int    `json:"index"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason"`
}

// ImportResponse summarises an import.
type ImportResponse struct {
	Added    []QuoteResponse     `json:"added"`
	Rejected []RejectionResponse `json:"rejected"`
	Total    int                 `json:"total"`
}

// SyncResponse summarises a sync with the remote source.
type SyncResponse struct {
	Fetched int  `json:"fetched"`
	Before  int  `json:"before"`
	After   int  `json:"after"`
	Changed bool `json:"changed"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a slice of domain quotes. The result is never nil.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}

// NewQuoteListResponse wraps quotes with their count.
func NewQuoteListResponse(quotes []domain.Quote) QuoteListResponse {
	return QuoteListResponse{Quotes: NewQuoteResponses(quotes), Count: len(quotes)}
}

// NewFilterResponse converts a filter result.
func NewFilterResponse(r app.FilterResult) FilterResponse {
	return FilterResponse{Category: r.Category, Quotes: NewQuoteResponses(r.Quotes), Count: len(r.Quotes)}
}

// NewImportResponse converts an import result.
func NewImportResponse(r app.ImportResult) ImportResponse {
	rejected := make([]RejectionResponse, 0, len(r.Rejected))
	for _, rej := range r.Rejected {
		rejected = append(rejected, RejectionResponse(rej))
	}

	return ImportResponse{Added: NewQuoteResponses(r.Added), Rejected: rejected, Total: r.Total}
}

// NewSyncResponse converts a sync result.
func NewSyncResponse(r app.SyncResult) SyncResponse {
	return SyncResponse(r)
}

package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// BaseAdapter holds the client and service name shared by remote adapters
// and maps every failure to a domain error.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a base adapter for serviceName.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// Client returns the underlying HTTP client.
func (a *BaseAdapter) Client() *clients.Client {
	return a.client
}

// ServiceName returns the name of the remote service.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Get performs a GET and returns the body of a successful response.
// The caller must close it.
func (a *BaseAdapter) Get(ctx context.Context, path, operation string) (io.ReadCloser, error) {
	resp, err := a.client.Get(ctx, path)

	return a.body(resp, err, operation)
}

// PostJSON POSTs the JSON encoding of payload and returns the body of a
// successful response. The caller must close it.
func (a *BaseAdapter) PostJSON(ctx context.Context, path string, payload any, operation string) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", operation, err)
	}

	resp, err := a.client.PostJSON(ctx, path, data)

	return a.body(resp, err, operation)
}

func (a *BaseAdapter) body(resp *http.Response, err error, operation string) (io.ReadCloser, error) {
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation)
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, errors.New("response body is nil")
	}
	defer func() { _ = body.Close() }()

	var result T
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// ValidateRequired returns a domain.ValidationError if value is empty.
func ValidateRequired(value, fieldName string) error {
	if value == "" {
		return domain.NewValidationError(fieldName, "is required")
	}

	return nil
}

// Translator converts one external DTO to a domain value, validating it on the way.
type Translator[External any, Domain any] func(ext *External) (Domain, error)

// TranslateSlice applies translate to every item and stops at the first error.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) ([]D, error) {
	result := make([]D, 0, len(items))

	for i := range items {
		translated, err := translate(&items[i])
		if err != nil {
			return nil, fmt.Errorf("translating item %d: %w", i, err)
		}

		result = append(result, translated)
	}

	return result, nil
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrConflict,
		ErrValidation,
		ErrUnavailable,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		id          string
		expectedMsg string
	}{
		{
			name:        "with entity and ID",
			entity:      "quote",
			id:          "last viewed",
			expectedMsg: `quote "last viewed" not found`,
		},
		{
			name:        "with entity only",
			entity:      "quote",
			expectedMsg: "quote not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.entity, tt.id)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)

			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, tt.entity, notFound.Entity)
			assert.Equal(t, tt.id, notFound.ID)
		})
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("quote", "already exists")
	assert.Equal(t, "quote conflict: already exists", err.Error())
	assert.True(t, IsConflict(err))

	detailed := NewConflictErrorWithDetails("quote", "already exists", "a")
	assert.Equal(t, "quote conflict: already exists (a)", detailed.Error())

	var conflict *ConflictError
	require.ErrorAs(t, detailed, &conflict)
	assert.Equal(t, "a", conflict.Details)
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{
			name:        "with field",
			err:         NewValidationError("text", "is required"),
			expectedMsg: "validation failed for text: is required",
		},
		{
			name:        "without field",
			err:         NewValidationError("", "expected a JSON array"),
			expectedMsg: "validation failed: expected a JSON array",
		},
		{
			name:        "with value",
			err:         NewValidationErrorWithValue("index", "out of range", 4),
			expectedMsg: "validation failed for index: out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
			assert.True(t, IsValidation(tt.err))
		})
	}
}

func TestUnavailableError(t *testing.T) {
	assert.Equal(t, `service "posts" unavailable: timeout`,
		NewUnavailableError("posts", "timeout").Error())
	assert.Equal(t, `service "posts" unavailable`,
		NewUnavailableError("posts", "").Error())
}

func TestIsHelpers_WrappedErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "not found", err: NewNotFoundError("quote", ""), check: IsNotFound},
		{name: "conflict", err: NewConflictError("quote", "dup"), check: IsConflict},
		{name: "validation", err: NewValidationError("text", "empty"), check: IsValidation},
		{name: "unavailable", err: NewUnavailableError("posts", "down"), check: IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestErrNoQuotes(t *testing.T) {
	assert.Equal(t, "no quotes available", ErrNoQuotes.Error())
	assert.True(t, IsNotFound(ErrNoQuotes))
	assert.True(t, IsNotFound(fmt.Errorf("random: %w", ErrNoQuotes)))
	assert.False(t, IsValidation(ErrNoQuotes))
}

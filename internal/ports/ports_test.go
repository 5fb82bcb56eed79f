package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChecker implements HealthChecker for testing.
type stubChecker struct {
	name string
	err  error
}

func (s *stubChecker) Name() string {
	return s.name
}

func (s *stubChecker) Check(context.Context) error {
	return s.err
}

func TestNewHealthRegistry(t *testing.T) {
	registry := NewHealthRegistry()

	require.NotNil(t, registry)
	assert.Empty(t, registry.checkers)
}

func TestRegister_DuplicateName(t *testing.T) {
	registry := NewHealthRegistry()

	require.NoError(t, registry.Register(&stubChecker{name: "sqlite"}))

	err := registry.RegisterOptional(&stubChecker{name: "sqlite"})
	require.ErrorIs(t, err, ErrDuplicateChecker)
	assert.Contains(t, err.Error(), "sqlite")
	assert.Len(t, registry.checkers, 1)
}

func TestCheckAll_NoCheckers(t *testing.T) {
	result := NewHealthRegistry().CheckAll(context.Background())

	require.NotNil(t, result)
	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.NotNil(t, result.Checks)
	assert.Empty(t, result.Checks)
	assert.False(t, result.Timestamp.IsZero())
}

func TestCheckAll_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		critical []*stubChecker
		optional []*stubChecker
		expected HealthStatus
	}{
		{
			name:     "all healthy",
			critical: []*stubChecker{{name: "sqlite"}},
			optional: []*stubChecker{{name: "posts"}},
			expected: HealthStatusHealthy,
		},
		{
			name:     "optional failure degrades",
			critical: []*stubChecker{{name: "sqlite"}},
			optional: []*stubChecker{{name: "posts", err: errors.New("dial tcp: refused")}},
			expected: HealthStatusDegraded,
		},
		{
			name:     "critical failure is unhealthy",
			critical: []*stubChecker{{name: "sqlite", err: errors.New("disk I/O error")}},
			optional: []*stubChecker{{name: "posts"}},
			expected: HealthStatusUnhealthy,
		},
		{
			name:     "critical failure wins over optional failure",
			critical: []*stubChecker{{name: "sqlite", err: errors.New("locked")}},
			optional: []*stubChecker{{name: "posts", err: errors.New("timeout")}},
			expected: HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry()
			for _, c := range tt.critical {
				require.NoError(t, registry.Register(c))
			}
			for _, c := range tt.optional {
				require.NoError(t, registry.RegisterOptional(c))
			}

			result := registry.CheckAll(context.Background())

			assert.Equal(t, tt.expected, result.Status)
			assert.Len(t, result.Checks, len(tt.critical)+len(tt.optional))

			for _, c := range tt.optional {
				assert.True(t, result.Checks[c.name].Optional)
				if c.err != nil {
					assert.Equal(t, c.err.Error(), result.Checks[c.name].Message)
				}
			}
		})
	}
}

// slowChecker respects context cancellation.
type slowChecker struct{}

func (slowChecker) Name() string { return "slow" }

func (slowChecker) Check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func TestCheckAll_ContextCancelled(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(slowChecker{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := registry.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["slow"].Message, "context canceled")
}

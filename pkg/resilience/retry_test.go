package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		MaxDelay:          2 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestRetry_RetriesRateLimited(t *testing.T) {
	var attempts []int
	policy := fastPolicy(3)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	calls := 0
	err := Retry(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return apperrors.NewRemoteError(429, "slow down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func() error {
		calls++
		return apperrors.NewRemoteError(400, "bad query")
	})
	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.IsRemoteError(err))
	assert.NotErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(2), func() error {
		calls++
		return apperrors.NewFetchFailed(errors.New("connection refused"), "")
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.True(t, apperrors.IsFetchFailed(err))

	// 不重试时直接返回原始错误
	err = Retry(context.Background(), fastPolicy(0), func() error {
		return apperrors.NewFetchFailed(nil, "")
	})
	assert.NotErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := fastPolicy(5)
	policy.InitialDelay = time.Hour
	policy.MaxDelay = time.Hour

	err := Retry(ctx, policy, func() error {
		cancel()
		return apperrors.NewRemoteError(429, "")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, p.calculateDelay(3))

	flat := RetryPolicy{InitialDelay: 15 * time.Second}
	assert.Equal(t, 15*time.Second, flat.calculateDelay(4))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", apperrors.NewRemoteError(429, ""), true},
		{"gateway timeout", fmt.Errorf("wrap: %w", apperrors.NewRemoteError(504, "")), true},
		{"bad request", apperrors.NewRemoteError(400, ""), false},
		{"server error", apperrors.NewRemoteError(500, ""), false},
		{"graphql errors", apperrors.NewGraphQLError("syntax"), false},
		{"transport", apperrors.NewFetchFailed(errors.New("eof"), ""), true},
		{"circuit open", apperrors.NewCircuitOpen("graphql", errors.New("open")), false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

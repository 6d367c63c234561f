package retry_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/reader/internal/feed"
	"github.com/jonesrussell/north-cloud/reader/internal/ingest"
	"github.com/jonesrussell/north-cloud/reader/internal/retry"
)

func fastConfig(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", &feed.Error{Type: feed.ErrTypeNetwork}, true},
		{"timeout", &feed.Error{Type: feed.ErrTypeTimeout}, true},
		{"wrapped in ingest error", &ingest.Error{Stage: ingest.StageFetch, Err: &feed.Error{Type: feed.ErrTypeNetwork}}, true},
		{"503", feed.ClassifyHTTPStatus(http.StatusServiceUnavailable, "u"), true},
		{"429", feed.ClassifyHTTPStatus(http.StatusTooManyRequests, "u"), true},
		{"404", feed.ClassifyHTTPStatus(http.StatusNotFound, "u"), false},
		{"parse", &feed.Error{Type: feed.ErrTypeParse}, false},
		{"in progress", ingest.ErrInProgress, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, retry.IsTransient(tt.err))
		})
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := retry.Do(context.Background(), fastConfig(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &feed.Error{Type: feed.ErrTypeTimeout}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	permanent := &feed.Error{Type: feed.ErrTypeParse}
	_, err := retry.Do(context.Background(), fastConfig(5), func(context.Context) (string, error) {
		calls++
		return "", permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := retry.Do(context.Background(), fastConfig(2), func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, &feed.Error{Type: feed.ErrTypeNetwork}
	})

	assert.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.True(t, feed.IsNetwork(err))
	assert.Equal(t, 2, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := retry.Do(ctx, fastConfig(3), func(context.Context) (int, error) {
		calls++
		return 0, nil
	})

	assert.ErrorIs(t, err, retry.ErrContextCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

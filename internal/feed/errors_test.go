package feed_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jonesrussell/north-cloud/reader/internal/feed"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantType    feed.ErrorType
		wantNetwork bool
		wantTimeout bool
	}{
		{
			name:        "deadline is timeout",
			err:         feed.ClassifyNetworkError(fmt.Errorf("get: %w", context.DeadlineExceeded), "https://a"),
			wantType:    feed.ErrTypeTimeout,
			wantNetwork: true,
			wantTimeout: true,
		},
		{
			name:        "plain transport failure",
			err:         feed.ClassifyNetworkError(errors.New("connection refused"), "https://a"),
			wantType:    feed.ErrTypeNetwork,
			wantNetwork: true,
		},
		{
			name:        "status",
			err:         feed.ClassifyHTTPStatus(503, "https://a"),
			wantType:    feed.ErrTypeStatus,
			wantNetwork: true,
		},
		{
			name:     "parse",
			err:      feed.ClassifyParseError(errors.New("bad xml"), "https://a"),
			wantType: feed.ErrTypeParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("ingest: %w", tt.err)

			var fe *feed.Error
			if !errors.As(wrapped, &fe) {
				t.Fatalf("expected *feed.Error in chain")
			}
			assertEqual(t, tt.wantType, fe.Type)
			assertEqual(t, tt.wantNetwork, feed.IsNetwork(wrapped))
			assertEqual(t, tt.wantTimeout, feed.IsTimeout(wrapped))
		})
	}
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	assertEqual(t, "feed status: HTTP 404 for https://a/feed", feed.ClassifyHTTPStatus(404, "https://a/feed").Error())
	assertEqual(t, "feed parse_error: bad xml", feed.ClassifyParseError(errors.New("bad xml"), "").Error())

	cause := errors.New("boom")
	if !errors.Is(feed.ClassifyNetworkError(cause, "u"), cause) {
		t.Error("Unwrap should expose the cause")
	}
}

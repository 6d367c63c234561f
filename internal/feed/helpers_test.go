package feed_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/jonesrussell/north-cloud/reader/internal/feed"
)

// requireNoError fails the test immediately if err is non-nil.
func requireNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// requireLen fails the test immediately if the slice length does not match.
func requireLen[T any](t *testing.T, items []T, expected int) {
	t.Helper()

	if len(items) != expected {
		t.Fatalf("expected %d items, got %d: %v", expected, len(items), items)
	}
}

func assertEqual[T comparable](t *testing.T, expected, actual T) {
	t.Helper()

	if expected != actual {
		t.Errorf("expected %v, got %v", expected, actual)
	}
}

// urlMockFetcher returns canned responses keyed by URL and records every request.
// Unknown URLs get a 404.
type urlMockFetcher struct {
	responses map[string]*feed.FetchResponse
	errors    map[string]error

	mu        sync.Mutex
	requested []string
}

func (m *urlMockFetcher) Fetch(_ context.Context, url string, _, _ *string) (*feed.FetchResponse, error) {
	m.mu.Lock()
	m.requested = append(m.requested, url)
	m.mu.Unlock()

	if err, ok := m.errors[url]; ok {
		return nil, err
	}
	if resp, ok := m.responses[url]; ok {
		return resp, nil
	}
	return &feed.FetchResponse{StatusCode: http.StatusNotFound}, nil
}

func (m *urlMockFetcher) requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requested...)
}

func htmlPage(body string) *feed.FetchResponse {
	return &feed.FetchResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func feedResponse(contentType string) *feed.FetchResponse {
	return &feed.FetchResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       []byte(`<rss version="2.0"><channel></channel></rss>`),
	}
}

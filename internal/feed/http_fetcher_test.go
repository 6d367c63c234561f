package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/reader/internal/feed"
)

const (
	testETagValue         = `"abc123"`
	testLastModifiedValue = "Sat, 01 Jan 2024 00:00:00 GMT"
	testResponseBody      = "<rss>test body</rss>"
)

func TestHTTPFetcher_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "reader-test" {
			t.Errorf("expected user agent reader-test, got %q", got)
		}
		w.Header().Set("ETag", testETagValue)
		w.Header().Set("Last-Modified", testLastModifiedValue)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(testResponseBody))
	}))
	defer srv.Close()

	fetcher := feed.NewHTTPFetcher(srv.Client(), feed.WithUserAgent("reader-test"))

	resp, err := fetcher.Fetch(context.Background(), srv.URL, nil, nil)
	requireNoError(t, err)

	assertEqual(t, http.StatusOK, resp.StatusCode)
	assertEqual(t, testResponseBody, string(resp.Body))
	assertEqual(t, testETagValue, resp.ETag())
	assertEqual(t, testLastModifiedValue, resp.LastModified())
	assertEqual(t, "application/rss+xml", resp.ContentType())
	assertEqual(t, srv.URL, resp.URL)
}

func TestHTTPFetcher_NotModified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	etag := testETagValue
	resp, err := feed.NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL, &etag, nil)
	requireNoError(t, err)

	assertEqual(t, http.StatusNotModified, resp.StatusCode)
	assertEqual(t, 0, len(resp.Body))
}

func TestHTTPFetcher_ConditionalHeaders(t *testing.T) {
	t.Parallel()

	var receivedETag, receivedModified string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedETag = r.Header.Get("If-None-Match")
		receivedModified = r.Header.Get("If-Modified-Since")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	etag := testETagValue
	lastModified := testLastModifiedValue

	_, err := feed.NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL, &etag, &lastModified)
	requireNoError(t, err)

	assertEqual(t, testETagValue, receivedETag)
	assertEqual(t, testLastModifiedValue, receivedModified)
}

func TestHTTPFetcher_EmptyValidatorsAreNotSent(t *testing.T) {
	t.Parallel()

	var sawHeader bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["If-None-Match"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	empty := ""
	_, err := feed.NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL, &empty, nil)
	requireNoError(t, err)

	if sawHeader {
		t.Error("expected no If-None-Match header for an empty etag")
	}
}

func TestHTTPFetcher_ErrorStatusIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := feed.NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL, nil, nil)
	requireNoError(t, err)
	assertEqual(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	fetcher := feed.NewHTTPFetcher(srv.Client(), feed.WithTimeout(50*time.Millisecond))

	_, err := fetcher.Fetch(context.Background(), srv.URL, nil, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !feed.IsTimeout(err) {
		t.Errorf("expected timeout classification, got %v", err)
	}
	if !feed.IsNetwork(err) {
		t.Error("timeouts are network class")
	}
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := feed.NewHTTPFetcher(nil).Fetch(context.Background(), addr, nil, nil)

	var fe *feed.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *feed.Error, got %T: %v", err, err)
	}
	assertEqual(t, feed.ErrTypeNetwork, fe.Type)
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := feed.NewHTTPFetcher(nil).Fetch(context.Background(), "http://[::1", nil, nil)
	if !errors.Is(err, feed.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

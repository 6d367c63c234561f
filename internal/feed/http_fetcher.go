package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 16 << 20

// HTTPFetcher performs GET requests with optional conditional headers.
type HTTPFetcher interface {
	Fetch(ctx context.Context, url string, etag, lastModified *string) (*FetchResponse, error)
}

// FetchResponse is the result of an HTTP fetch. Body is empty for 304 responses.
type FetchResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the final URL after redirects.
	URL string
}

// ETag returns the response ETag, or "" when absent.
func (r *FetchResponse) ETag() string { return r.Header.Get("ETag") }

// LastModified returns the response Last-Modified value, or "" when absent.
func (r *FetchResponse) LastModified() string { return r.Header.Get("Last-Modified") }

// ContentType returns the response Content-Type.
func (r *FetchResponse) ContentType() string { return r.Header.Get("Content-Type") }

// DefaultHTTPFetcher implements HTTPFetcher using net/http.
type DefaultHTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// FetcherOption configures a DefaultHTTPFetcher.
type FetcherOption func(*DefaultHTTPFetcher)

// WithTimeout bounds each request. Zero leaves only the caller's context.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *DefaultHTTPFetcher) { f.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *DefaultHTTPFetcher) { f.userAgent = ua }
}

// NewHTTPFetcher creates an HTTPFetcher backed by client. A nil client uses http.DefaultClient.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *DefaultHTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &DefaultHTTPFetcher{client: client}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs an HTTP GET. Transport failures are returned as *Error with type
// network or timeout; any HTTP status, including errors, is a successful fetch.
func (f *DefaultHTTPFetcher) Fetch(
	ctx context.Context,
	url string,
	etag, lastModified *string,
) (*FetchResponse, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidURL, url, err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml, text/html;q=0.9, */*;q=0.8")
	setConditionalHeaders(req, etag, lastModified)

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return nil, ClassifyNetworkError(doErr, url)
	}
	defer resp.Body.Close()

	result := &FetchResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        resp.Request.URL.String(),
	}

	if resp.StatusCode != http.StatusNotModified {
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, ClassifyNetworkError(readErr, url)
		}
		result.Body = raw
	}

	return result, nil
}

// setConditionalHeaders adds If-None-Match and If-Modified-Since for non-empty validators.
func setConditionalHeaders(req *http.Request, etag, lastModified *string) {
	if etag != nil && *etag != "" {
		req.Header.Set("If-None-Match", *etag)
	}
	if lastModified != nil && *lastModified != "" {
		req.Header.Set("If-Modified-Since", *lastModified)
	}
}

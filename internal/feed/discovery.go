package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

// DefaultProbePaths are well-known feed locations probed when a page advertises none.
var DefaultProbePaths = []string{
	"/feed",
	"/rss",
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
	"/feed/",
	"/rss/",
}

// DefaultProbeConcurrency bounds in-flight probe requests.
const DefaultProbeConcurrency = 6

// feedLinkTypes are the <link type> values advertised for feeds.
var feedLinkTypes = map[string]struct{}{
	"application/rss+xml":   {},
	"application/atom+xml":  {},
	"application/feed+json": {},
}

// Discoverer finds feeds for a website.
type Discoverer struct {
	fetcher     HTTPFetcher
	log         logger.Logger
	probePaths  []string
	concurrency int
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithProbePaths replaces DefaultProbePaths.
func WithProbePaths(paths []string) DiscovererOption {
	return func(d *Discoverer) {
		if len(paths) > 0 {
			d.probePaths = paths
		}
	}
}

// WithProbeConcurrency bounds in-flight probes. Values below 1 are ignored.
func WithProbeConcurrency(n int) DiscovererOption {
	return func(d *Discoverer) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// NewDiscoverer creates a feed discoverer.
func NewDiscoverer(fetcher HTTPFetcher, log logger.Logger, opts ...DiscovererOption) *Discoverer {
	if log == nil {
		log = logger.NewNop()
	}
	d := &Discoverer{
		fetcher:     fetcher,
		log:         log.With(logger.Component("feed-discovery")),
		probePaths:  DefaultProbePaths,
		concurrency: DefaultProbeConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns candidate feed URLs for websiteURL, most confident first.
//
// Feeds advertised by <link rel="alternate"> win and suppress probing. Otherwise
// the well-known paths are probed against the site root and hits are returned
// in probe-list order. Only an unreachable page is an error; finding nothing yields
// an empty slice.
func (d *Discoverer) Discover(ctx context.Context, websiteURL string) ([]string, error) {
	pageURL, err := parseWebsiteURL(websiteURL)
	if err != nil {
		return nil, err
	}

	resp, err := d.fetcher.Fetch(ctx, pageURL.String(), nil, nil)
	if err != nil {
		d.log.Warn("website unreachable",
			logger.String("url", pageURL.String()),
			logger.Error(err),
		)
		var fe *Error
		if !errors.As(err, &fe) {
			err = ClassifyNetworkError(err, pageURL.String())
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		base := pageURL.String()
		if resp.URL != "" {
			base = resp.URL
		}
		if links := extractFeedLinks(base, resp.Body); len(links) > 0 {
			d.log.Debug("feeds advertised by page",
				logger.String("url", pageURL.String()),
				logger.Int("count", len(links)),
			)
			return links, nil
		}
	} else {
		d.log.Debug("website returned non-200, probing",
			logger.String("url", pageURL.String()),
			logger.Int("status", resp.StatusCode),
		)
	}

	return d.probe(ctx, pageURL), nil
}

func parseWebsiteURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s: must be an absolute http(s) url", ErrInvalidURL, raw)
	}
	return u, nil
}

// extractFeedLinks returns advertised feed hrefs in document order, resolved and de-duplicated.
func extractFeedLinks(pageURL string, body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved := resolveURL(pageURL, href); resolved != "" {
			base = resolved
		}
	}

	var links []string
	seen := make(map[string]struct{})

	doc.Find("link[rel][href]").Each(func(_ int, s *goquery.Selection) {
		if !relHasAlternate(s.AttrOr("rel", "")) || !isFeedLinkType(s.AttrOr("type", "")) {
			return
		}
		resolved := resolveURL(base, s.AttrOr("href", ""))
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	})

	return links
}

func relHasAlternate(rel string) bool {
	for _, tok := range strings.Fields(rel) {
		if strings.EqualFold(tok, "alternate") {
			return true
		}
	}
	return false
}

func isFeedLinkType(linkType string) bool {
	mime, _, _ := strings.Cut(linkType, ";")
	_, ok := feedLinkTypes[strings.ToLower(strings.TrimSpace(mime))]
	return ok
}

// probe requests each probe path concurrently. Results keep probe-list order.
func (d *Discoverer) probe(ctx context.Context, pageURL *url.URL) []string {
	root := &url.URL{Scheme: pageURL.Scheme, Host: pageURL.Host, Path: "/"}

	hits := make([]string, len(d.probePaths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i, path := range d.probePaths {
		candidate := resolveURL(root.String(), path)
		if candidate == "" {
			continue
		}
		g.Go(func() error {
			if d.isFeedResponse(gctx, candidate) {
				hits[i] = candidate
			}
			return nil
		})
	}
	_ = g.Wait()

	found := make([]string, 0, len(hits))
	seen := make(map[string]struct{})
	for _, h := range hits {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		found = append(found, h)
	}

	d.log.Debug("probed well-known feed paths",
		logger.String("url", pageURL.String()),
		logger.Int("probes", len(d.probePaths)),
		logger.Int("hits", len(found)),
	)
	return found
}

// isFeedResponse reports a 200 whose Content-Type mentions xml, rss or atom.
func (d *Discoverer) isFeedResponse(ctx context.Context, candidate string) bool {
	resp, err := d.fetcher.Fetch(ctx, candidate, nil, nil)
	if err != nil {
		return false
	}
	if resp.StatusCode != http.StatusOK {
		return false
	}
	ct := strings.ToLower(resp.ContentType())
	return strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom")
}

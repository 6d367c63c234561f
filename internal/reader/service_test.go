package reader_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/reader/internal/config"
	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/feed"
	"github.com/jonesrussell/north-cloud/reader/internal/ingest"
	"github.com/jonesrussell/north-cloud/reader/internal/reader"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
	"github.com/jonesrussell/north-cloud/reader/internal/storage/memory"
)

const (
	siteURL = "https://example.com"
	feedURL = "https://example.com/blog/feed.xml"
)

var sitePage = `<html><head>
<link rel="alternate" type="application/rss+xml" href="/blog/feed.xml">
</head><body></body></html>`

var feedBody = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example</title><link>https://example.com</link>
<item><title>Software Architecture Basics</title><link>https://example.com/arch</link>
<description>Layers and boundaries in software architecture</description>
<pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate></item>
<item><title>Design Patterns Deep Dive</title><link>https://example.com/patterns</link>
<description>` + strings.Repeat("Design patterns in software architecture. ", 10) + `</description>
<pubDate>Thu, 01 Feb 2024 10:00:00 +0000</pubDate></item>
<item><title>Sourdough Bread</title><link>https://example.com/bread</link>
<description>Flour water salt</description>
<pubDate>Fri, 01 Mar 2024 10:00:00 +0000</pubDate></item>
</channel></rss>`

type siteFetcher struct{}

func (siteFetcher) Fetch(_ context.Context, url string, _, _ *string) (*feed.FetchResponse, error) {
	switch url {
	case siteURL:
		return &feed.FetchResponse{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/html"}},
			Body:       []byte(sitePage),
			URL:        siteURL,
		}, nil
	case feedURL:
		return &feed.FetchResponse{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/rss+xml"}},
			Body:       []byte(feedBody),
			URL:        feedURL,
		}, nil
	default:
		return &feed.FetchResponse{StatusCode: http.StatusNotFound}, nil
	}
}

func newService(t *testing.T) (*reader.Service, storage.Store) {
	t.Helper()

	store := memory.New()
	svc, err := reader.New(config.Default(), reader.Deps{Store: store, Fetcher: siteFetcher{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store
}

func addSource(t *testing.T, store storage.Store) *domain.Source {
	t.Helper()

	src := &domain.Source{Title: "Example", FeedURL: feedURL, SiteURL: siteURL, Active: true}
	require.NoError(t, store.CreateSource(context.Background(), src))
	return src
}

func articleByLink(t *testing.T, store storage.Store, link string) *domain.Article {
	t.Helper()

	all, err := store.ListArticles(context.Background(), storage.ArticleFilter{})
	require.NoError(t, err)
	for _, a := range all {
		if a.Link == link {
			return a
		}
	}
	t.Fatalf("no article with link %s", link)
	return nil
}

func TestNew_RequiresStore(t *testing.T) {
	t.Parallel()

	_, err := reader.New(nil, reader.Deps{})
	assert.ErrorIs(t, err, reader.ErrStoreRequired)
}

func TestNew_RejectsUnknownStopWordLanguage(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Keywords.Languages = []string{"en", "xx"}

	_, err := reader.New(cfg, reader.Deps{Store: memory.New()})
	require.Error(t, err)
}

func TestService_DiscoverIngestRelateMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)

	feeds, err := svc.DiscoverFeeds(ctx, siteURL)
	require.NoError(t, err)
	require.Equal(t, []string{feedURL}, feeds)

	src := addSource(t, store)

	res, err := svc.IngestSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)

	again, err := svc.IngestSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Added)

	arch := articleByLink(t, store, "https://example.com/arch")
	patterns := articleByLink(t, store, "https://example.com/patterns")

	rels, err := svc.FindRelatedArticles(ctx, arch.ID, 5)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, patterns.ID, rels[0].TargetArticleID)
	assert.Equal(t, domain.RelationExtension, rels[0].Type)
	assert.Positive(t, rels[0].Score)

	group := &domain.KeywordGroup{Name: "Architecture", Keywords: []string{"architecture", "design patterns"}, Active: true}
	require.NoError(t, store.CreateGroup(ctx, group))

	matched, err := svc.ArticlesMatchingGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, patterns.ID, matched[0].ID, "store order, newest first")
	assert.Equal(t, arch.ID, matched[1].ID)

	byGroup, groups, err := svc.MatchActiveGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, byGroup[group.ID], 2)

	metrics := svc.Metrics()
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(ingest.StatusSuccess)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.ArticlesAdded), 0)
}

func TestService_StoredAndRefreshedVectorsShareOneLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	cfg := config.Default()
	cfg.Keywords.MaxKeywords = 2
	svc, err := reader.New(cfg, reader.Deps{Store: store, Fetcher: siteFetcher{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	src := addSource(t, store)
	_, err = svc.IngestSource(ctx, src.ID)
	require.NoError(t, err)

	arch := articleByLink(t, store, "https://example.com/arch")
	require.NotEmpty(t, arch.Keywords)
	assert.LessOrEqual(t, len(arch.Keywords), 2)

	refreshed, err := svc.RefreshKeywords(ctx, arch.ID)
	require.NoError(t, err)
	assert.Equal(t, arch.Keywords, refreshed)
}

func TestService_InactiveGroupMatchesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)
	src := addSource(t, store)
	_, err := svc.IngestSource(ctx, src.ID)
	require.NoError(t, err)

	group := &domain.KeywordGroup{Name: "Off", Keywords: []string{"architecture"}}
	require.NoError(t, store.CreateGroup(ctx, group))

	matched, err := svc.ArticlesMatchingGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestService_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.FindRelatedArticles(ctx, uuid.New(), 5)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = svc.ArticlesMatchingGroup(ctx, uuid.New())
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = svc.IngestSource(ctx, uuid.New())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestService_ExtractAndRefreshKeywords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)

	weights := svc.ExtractKeywords("go go rust", 5)
	assert.InDelta(t, 2.0/3.0, weights["go"], 1e-9)
	assert.Empty(t, svc.ExtractKeywords("the and of", 5))
	assert.Empty(t, svc.ExtractKeywords("go", 0))

	ranked := svc.RankKeywords("rust go go", 1)
	require.Len(t, ranked, 1)
	assert.Equal(t, "go", ranked[0].Word)

	src := addSource(t, store)
	_, err := svc.IngestSource(ctx, src.ID)
	require.NoError(t, err)

	bread := articleByLink(t, store, "https://example.com/bread")
	refreshed, err := svc.RefreshKeywords(ctx, bread.ID)
	require.NoError(t, err)
	assert.Contains(t, refreshed, "sourdough")

	stored, err := store.GetArticle(ctx, bread.ID)
	require.NoError(t, err)
	assert.Equal(t, refreshed, stored.Keywords)
}

func TestService_IngestAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)
	addSource(t, store)

	outcomes, err := svc.IngestAll(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, 3, outcomes[0].Result.Added)
}

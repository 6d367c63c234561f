// Package reader wires the feed, ingest, keyword, relation and aggregate packages
// into the service used by the command line.
package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/north-cloud/reader/internal/aggregate"
	"github.com/jonesrussell/north-cloud/reader/internal/config"
	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/feed"
	"github.com/jonesrussell/north-cloud/reader/internal/ingest"
	"github.com/jonesrussell/north-cloud/reader/internal/keyword"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
	"github.com/jonesrussell/north-cloud/reader/internal/relation"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
	"github.com/jonesrussell/north-cloud/reader/internal/text"
)

// ErrStoreRequired is returned by New without a store.
var ErrStoreRequired = errors.New("store is required")

// Deps are the collaborators a Service is built from. Only Store is required.
type Deps struct {
	Store   storage.Store
	Fetcher feed.HTTPFetcher
	Locker  ingest.Locker
	// Registerer receives the ingestion metrics. Nil uses a private registry.
	Registerer prometheus.Registerer
	Logger     logger.Logger
	// Closers run after the store is closed, e.g. a Redis client.
	Closers []func() error
}

// Service is the reader core.
type Service struct {
	cfg        *config.Config
	store      storage.Store
	log        logger.Logger
	discoverer *feed.Discoverer
	engine     *ingest.Engine
	extractor  *keyword.Extractor
	cache      *keyword.Cache
	relations  *relation.Engine
	matcher    *aggregate.Matcher
	metrics    *ingest.Metrics
	closers    []func() error
}

// New builds a Service from cfg and deps.
func New(cfg *config.Config, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, ErrStoreRequired
	}
	if cfg == nil {
		cfg = config.Default()
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = feed.NewHTTPFetcher(&http.Client{},
			feed.WithTimeout(cfg.HTTP.Timeout),
			feed.WithUserAgent(cfg.HTTP.UserAgent),
		)
	}

	tokenizer, err := newTokenizer(cfg.Keywords.Languages)
	if err != nil {
		return nil, err
	}
	extractor := keyword.NewExtractor(tokenizer)

	cache, err := keyword.NewCache(cfg.Keywords.CacheSize, cfg.Keywords.MaxKeywords, extractor)
	if err != nil {
		return nil, err
	}

	relations, err := relation.NewEngine(cache, relation.WithWorkers(cfg.Relation.Workers))
	if err != nil {
		return nil, err
	}

	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := ingest.NewMetrics(reg)

	opts := []ingest.Option{
		ingest.WithExtractor(extractor),
		ingest.WithMetrics(metrics),
		ingest.WithMaxParallel(cfg.Ingest.MaxParallel),
		ingest.WithMaxKeywords(cache.MaxKeywords()),
	}
	if deps.Locker != nil {
		opts = append(opts, ingest.WithLocker(deps.Locker))
	}

	discoveryOpts := []feed.DiscovererOption{feed.WithProbeConcurrency(cfg.Discovery.ProbeConcurrency)}
	if len(cfg.Discovery.ProbePaths) > 0 {
		discoveryOpts = append(discoveryOpts, feed.WithProbePaths(cfg.Discovery.ProbePaths))
	}

	return &Service{
		cfg:        cfg,
		store:      deps.Store,
		log:        log,
		discoverer: feed.NewDiscoverer(fetcher, log, discoveryOpts...),
		engine:     ingest.NewEngine(deps.Store, fetcher, log, opts...),
		extractor:  extractor,
		cache:      cache,
		relations:  relations,
		matcher:    aggregate.NewMatcher(log),
		metrics:    metrics,
		closers:    deps.Closers,
	}, nil
}

func newTokenizer(languages []string) (*text.Tokenizer, error) {
	if len(languages) == 0 {
		return text.New(), nil
	}

	langs := make([]text.Language, 0, len(languages))
	for _, raw := range languages {
		lang, err := text.ParseLanguage(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("keywords.languages: %w", err)
		}
		langs = append(langs, lang)
	}
	return text.New(text.WithLanguages(langs...)), nil
}

// Store exposes the underlying persistence.
func (s *Service) Store() storage.Store { return s.store }

// Metrics exposes the ingestion metrics.
func (s *Service) Metrics() *ingest.Metrics { return s.metrics }

// Close releases the store and any extra resources.
func (s *Service) Close() error {
	errs := []error{s.store.Close()}
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// DiscoverFeeds returns the feed URLs advertised by or probed on websiteURL.
func (s *Service) DiscoverFeeds(ctx context.Context, websiteURL string) ([]string, error) {
	return s.discoverer.Discover(ctx, websiteURL)
}

// IngestSource runs one ingestion cycle for a source.
func (s *Service) IngestSource(ctx context.Context, sourceID uuid.UUID) (ingest.Result, error) {
	return s.engine.Ingest(ctx, sourceID)
}

// IngestAll runs one ingestion cycle for every active source.
func (s *Service) IngestAll(ctx context.Context) ([]ingest.Outcome, error) {
	return s.engine.IngestAll(ctx)
}

// ExtractKeywords returns the top maxKeywords keywords of text.
func (s *Service) ExtractKeywords(text string, maxKeywords int) keyword.Weights {
	return s.extractor.Extract(text, maxKeywords)
}

// RankKeywords is ExtractKeywords in rank order.
func (s *Service) RankKeywords(text string, maxKeywords int) []keyword.Keyword {
	return s.extractor.Rank(text, maxKeywords)
}

// FindRelatedArticles relates an article to every other stored article.
func (s *Service) FindRelatedArticles(
	ctx context.Context,
	articleID uuid.UUID,
	maxResults int,
) ([]domain.ArticleRelation, error) {
	target, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("find related: %w", err)
	}

	pool, err := s.store.ListArticles(ctx, storage.ArticleFilter{})
	if err != nil {
		return nil, fmt.Errorf("find related: %w", err)
	}

	return s.relations.FindRelated(ctx, target, pool, maxResults)
}

// ArticlesMatchingGroup returns the stored articles matching a keyword group, newest
// first. An inactive group matches nothing.
func (s *Service) ArticlesMatchingGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Article, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("match group: %w", err)
	}
	if !group.Active {
		return []*domain.Article{}, nil
	}

	articles, err := s.store.ListArticles(ctx, storage.ArticleFilter{})
	if err != nil {
		return nil, fmt.Errorf("match group: %w", err)
	}

	return s.matcher.MatchGroup(group, articles), nil
}

// MatchActiveGroups matches every active group against the stored articles.
func (s *Service) MatchActiveGroups(ctx context.Context) (map[uuid.UUID][]*domain.Article, []*domain.KeywordGroup, error) {
	groups, err := s.store.ListGroups(ctx, true)
	if err != nil {
		return nil, nil, fmt.Errorf("match groups: %w", err)
	}

	articles, err := s.store.ListArticles(ctx, storage.ArticleFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("match groups: %w", err)
	}

	return s.matcher.MatchAll(groups, articles), groups, nil
}

// RefreshKeywords re-extracts and persists an article's keywords.
func (s *Service) RefreshKeywords(ctx context.Context, articleID uuid.UUID) (keyword.Weights, error) {
	a, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("refresh keywords: %w", err)
	}

	weights := s.extractor.ForArticle(a, s.cache.MaxKeywords())
	if updateErr := s.store.UpdateArticleKeywords(ctx, articleID, weights); updateErr != nil {
		return nil, fmt.Errorf("refresh keywords: %w", updateErr)
	}
	s.cache.Invalidate(articleID)
	return weights, nil
}

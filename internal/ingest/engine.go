// Package ingest fetches a source's feed and persists the entries it has not seen before.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/feed"
	"github.com/jonesrussell/north-cloud/reader/internal/keyword"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

const (
	// DefaultMaxParallel is how many sources IngestAll runs at once.
	DefaultMaxParallel = 4
	// DefaultMaxKeywords is how many keywords are stored per new article.
	DefaultMaxKeywords = keyword.DefaultMaxKeywords
)

// Store is the persistence the engine needs.
type Store interface {
	GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	ListSources(ctx context.Context, activeOnly bool) ([]*domain.Source, error)
	MarkSourceFetched(ctx context.Context, id uuid.UUID, state domain.FetchState) error
	ExistingLinksForSource(ctx context.Context, sourceID uuid.UUID) (map[string]struct{}, error)
	InsertArticles(ctx context.Context, articles []*domain.Article) (int, error)
}

// Result summarises one successful ingestion run.
type Result struct {
	SourceID uuid.UUID `json:"source_id"`
	Added    int       `json:"added"`
	// Skipped counts entries that were invalid or already stored.
	Skipped int `json:"skipped"`
	// Duplicates is the part of Skipped whose link was already stored.
	Duplicates  int  `json:"duplicates"`
	NotModified bool `json:"not_modified"`
}

// Outcome is the result of one source within IngestAll.
type Outcome struct {
	Source *domain.Source
	Result Result
	Err    error
}

// Engine runs ingestion cycles.
type Engine struct {
	store       Store
	fetcher     feed.HTTPFetcher
	normalizer  *feed.Normalizer
	extractor   *keyword.Extractor
	locker      Locker
	metrics     *Metrics
	log         logger.Logger
	maxParallel int
	maxKeywords int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor sets the keyword extractor used for new articles.
func WithExtractor(x *keyword.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithLocker replaces the in-process KeyedLocker.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithMetrics records run metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxParallel bounds IngestAll concurrency. Values below 1 are ignored.
func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxParallel = n
		}
	}
}

// WithMaxKeywords sets how many keywords are stored per article.
func WithMaxKeywords(n int) Option {
	return func(e *Engine) { e.maxKeywords = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine.
func NewEngine(store Store, fetcher feed.HTTPFetcher, log logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("ingest"))

	e := &Engine{
		store:       store,
		fetcher:     fetcher,
		normalizer:  feed.NewNormalizer(log),
		locker:      NewKeyedLocker(),
		log:         log,
		maxParallel: DefaultMaxParallel,
		maxKeywords: DefaultMaxKeywords,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = keyword.NewExtractor(nil)
	}
	return e
}

// Ingest runs one cycle for the source. The source is left untouched unless the run
// succeeds, in which case LastUpdated and the conditional GET validators advance.
// ErrInProgress is returned while another run for the same source holds the lock.
func (e *Engine) Ingest(ctx context.Context, sourceID uuid.UUID) (Result, error) {
	start := e.now()

	result, err := e.ingest(ctx, sourceID)

	status := StatusSuccess
	switch {
	case errors.Is(err, ErrInProgress):
		status = StatusInProgress
	case err != nil:
		status = StatusFailed
	case result.NotModified:
		status = StatusNotModified
	}
	e.metrics.observeRun(status, e.now().Sub(start))

	return result, err
}

func (e *Engine) ingest(ctx context.Context, sourceID uuid.UUID) (Result, error) {
	result := Result{SourceID: sourceID}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	unlock, acquired, err := e.locker.TryLock(ctx, sourceID.String())
	if err != nil {
		return result, fmt.Errorf("ingest lock source %s: %w", sourceID, err)
	}
	if !acquired {
		return result, fmt.Errorf("source %s: %w", sourceID, ErrInProgress)
	}
	defer func() {
		if unlockErr := unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			e.log.Warn("failed to release source lock",
				logger.String("source_id", sourceID.String()),
				logger.Error(unlockErr),
			)
		}
	}()

	// Load under the lock so validators written by the previous holder are seen.
	source, err := e.store.GetSource(ctx, sourceID)
	if err != nil {
		return result, fmt.Errorf("ingest get source: %w", err)
	}

	resp, err := e.fetcher.Fetch(ctx, source.FeedURL, optional(source.ETag), optional(source.LastModified))
	if err != nil {
		return result, &Error{Stage: StageFetch, SourceID: sourceID, Err: err}
	}

	if resp.StatusCode == http.StatusNotModified {
		e.log.Info("feed not modified, skipping",
			logger.String("source_id", sourceID.String()),
			logger.String("feed_url", source.FeedURL),
		)
		result.NotModified = true
		if saveErr := e.markUpdated(ctx, source, resp); saveErr != nil {
			return result, saveErr
		}
		return result, nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return result, &Error{
			Stage:    StageFetch,
			SourceID: sourceID,
			Err:      feed.ClassifyHTTPStatus(resp.StatusCode, source.FeedURL),
		}
	}

	return e.process(ctx, source, resp)
}

// process parses the response, stores new entries and advances the source.
func (e *Engine) process(ctx context.Context, source *domain.Source, resp *feed.FetchResponse) (Result, error) {
	result := Result{SourceID: source.ID}

	doc, err := feed.Parse(resp.Body)
	if err != nil {
		return result, &Error{Stage: StageParse, SourceID: source.ID, Err: err}
	}

	parsed, stats, err := e.normalizer.Normalize(doc)
	if err != nil {
		return result, &Error{Stage: StageParse, SourceID: source.ID, Err: err}
	}

	existing, err := e.store.ExistingLinksForSource(ctx, source.ID)
	if err != nil {
		return result, &Error{Stage: StagePersist, SourceID: source.ID, Err: err}
	}

	articles, duplicates := e.newArticles(source.ID, parsed.Entries, existing)

	inserted, err := e.store.InsertArticles(ctx, articles)
	if err != nil {
		return result, &Error{Stage: StagePersist, SourceID: source.ID, Err: err}
	}
	// Rows another writer stored between the link lookup and the insert are duplicates too.
	duplicates += len(articles) - inserted

	invalid := stats.Total - stats.Kept
	result.Added = inserted
	result.Duplicates = duplicates
	result.Skipped = invalid + duplicates
	e.metrics.observeEntries(inserted, duplicates, stats.Skipped)

	if saveErr := e.markUpdated(ctx, source, resp); saveErr != nil {
		return result, saveErr
	}

	e.log.Info("feed ingested successfully",
		logger.String("source_id", source.ID.String()),
		logger.String("feed_url", source.FeedURL),
		logger.Int("entries", stats.Total),
		logger.Int("added", result.Added),
		logger.Int("skipped", result.Skipped),
	)

	return result, nil
}

// newArticles builds articles for entries whose link is neither stored nor repeated
// earlier in the batch. It returns the articles and the number of duplicates dropped.
func (e *Engine) newArticles(
	sourceID uuid.UUID,
	entries []domain.FeedEntry,
	existing map[string]struct{},
) ([]*domain.Article, int) {
	seen := make(map[string]struct{}, len(entries))
	articles := make([]*domain.Article, 0, len(entries))
	duplicates := 0

	for i := range entries {
		entry := &entries[i]
		if _, stored := existing[entry.Link]; stored {
			duplicates++
			continue
		}
		if _, repeated := seen[entry.Link]; repeated {
			duplicates++
			continue
		}
		seen[entry.Link] = struct{}{}

		a := &domain.Article{
			ID:          uuid.New(),
			SourceID:    sourceID,
			Title:       entry.Title,
			Link:        entry.Link,
			Summary:     entry.Summary,
			Content:     entry.Content,
			Author:      entry.Author,
			ImageURL:    entry.ImageURL,
			PublishedAt: entry.PublishedAt,
		}
		a.Keywords = e.extractor.ForArticle(a, e.maxKeywords)
		articles = append(articles, a)
	}

	return articles, duplicates
}

// markUpdated records the fetch time and any new validators. Other source fields
// are left as stored so edits made during the run survive.
func (e *Engine) markUpdated(ctx context.Context, source *domain.Source, resp *feed.FetchResponse) error {
	state := domain.FetchState{
		LastUpdated:  e.now().UTC(),
		ETag:         resp.ETag(),
		LastModified: resp.LastModified(),
	}
	if err := e.store.MarkSourceFetched(ctx, source.ID, state); err != nil {
		return &Error{Stage: StagePersist, SourceID: source.ID, Err: err}
	}

	source.LastUpdated = &state.LastUpdated
	if state.ETag != "" {
		source.ETag = state.ETag
	}
	if state.LastModified != "" {
		source.LastModified = state.LastModified
	}
	return nil
}

// IngestAll ingests every active source with bounded parallelism. Outcomes are in
// source order; a failing source does not stop the others.
func (e *Engine) IngestAll(ctx context.Context) ([]Outcome, error) {
	sources, err := e.store.ListSources(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("ingest all list sources: %w", err)
	}

	outcomes := make([]Outcome, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for i, src := range sources {
		g.Go(func() error {
			res, ingestErr := e.Ingest(gctx, src.ID)
			if ingestErr != nil {
				e.log.Error("source ingestion failed",
					logger.String("source_id", src.ID.String()),
					logger.String("feed_url", src.FeedURL),
					logger.Error(ingestErr),
				)
			}
			outcomes[i] = Outcome{Source: src, Result: res, Err: ingestErr}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package memory is an in-process storage.Store.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type linkKey struct {
	sourceID uuid.UUID
	link     string
}

// Store provides thread-safe, in-memory storage. Values are copied in and out,
// so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	sources  map[uuid.UUID]domain.Source
	articles map[uuid.UUID]domain.Article
	links    map[linkKey]uuid.UUID
	groups   map[uuid.UUID]domain.KeywordGroup
	now      func() time.Time
}

// New creates an empty Store ready for use.
func New() *Store {
	return &Store{
		sources:  make(map[uuid.UUID]domain.Source),
		articles: make(map[uuid.UUID]domain.Article),
		links:    make(map[linkKey]uuid.UUID),
		groups:   make(map[uuid.UUID]domain.KeywordGroup),
		now:      time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ---------- Sources ----------

func (s *Store) CreateSource(_ context.Context, source *domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if _, ok := s.sources[source.ID]; ok {
		return fmt.Errorf("source %s: %w", source.ID, storage.ErrConflict)
	}
	for _, existing := range s.sources {
		if existing.FeedURL == source.FeedURL {
			return fmt.Errorf("source with feed url %s: %w", source.FeedURL, storage.ErrConflict)
		}
	}

	s.sources[source.ID] = cloneSource(*source)
	return nil
}

func (s *Store) GetSource(_ context.Context, id uuid.UUID) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", id, storage.ErrNotFound)
	}
	out := cloneSource(src)
	return &out, nil
}

func (s *Store) ListSources(_ context.Context, activeOnly bool) ([]*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if activeOnly && !src.Active {
			continue
		}
		c := cloneSource(src)
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) SaveSource(_ context.Context, source *domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[source.ID]; !ok {
		return fmt.Errorf("source %s: %w", source.ID, storage.ErrNotFound)
	}
	s.sources[source.ID] = cloneSource(*source)
	return nil
}

func (s *Store) MarkSourceFetched(_ context.Context, id uuid.UUID, state domain.FetchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("source %s: %w", id, storage.ErrNotFound)
	}
	updated := state.LastUpdated
	src.LastUpdated = &updated
	if state.ETag != "" {
		src.ETag = state.ETag
	}
	if state.LastModified != "" {
		src.LastModified = state.LastModified
	}
	s.sources[id] = src
	return nil
}

// DeleteSource removes a source and all of its articles.
func (s *Store) DeleteSource(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[id]; !ok {
		return fmt.Errorf("source %s: %w", id, storage.ErrNotFound)
	}
	delete(s.sources, id)

	for key, art := range s.articles {
		if art.SourceID == id {
			delete(s.articles, key)
			delete(s.links, linkKey{sourceID: id, link: art.Link})
		}
	}
	return nil
}

// ---------- Articles ----------

func (s *Store) GetArticle(_ context.Context, id uuid.UUID) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	art, ok := s.articles[id]
	if !ok {
		return nil, fmt.Errorf("article %s: %w", id, storage.ErrNotFound)
	}
	out := cloneArticle(art)
	return &out, nil
}

func (s *Store) ArticlesForSource(ctx context.Context, sourceID uuid.UUID) ([]*domain.Article, error) {
	return s.ListArticles(ctx, storage.ArticleFilter{SourceID: &sourceID})
}

func (s *Store) ExistingLinksForSource(_ context.Context, sourceID uuid.UUID) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := make(map[string]struct{})
	for key := range s.links {
		if key.sourceID == sourceID {
			links[key.link] = struct{}{}
		}
	}
	return links, nil
}

// InsertArticles stores the batch under a single write lock. Existing (SourceID, Link)
// pairs are left untouched.
func (s *Store) InsertArticles(_ context.Context, articles []*domain.Article) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range articles {
		if _, ok := s.sources[a.SourceID]; !ok {
			return 0, fmt.Errorf("insert article %q: source %s: %w", a.Link, a.SourceID, storage.ErrNotFound)
		}
	}

	inserted := 0
	for _, a := range articles {
		key := linkKey{sourceID: a.SourceID, link: a.Link}
		if _, exists := s.links[key]; exists {
			continue
		}
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if _, exists := s.articles[a.ID]; exists {
			continue
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = s.now()
		}
		s.articles[a.ID] = cloneArticle(*a)
		s.links[key] = a.ID
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListArticles(_ context.Context, filter storage.ArticleFilter) ([]*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Article, 0)
	for _, art := range s.articles {
		if filter.SourceID != nil && art.SourceID != *filter.SourceID {
			continue
		}
		if filter.UnreadOnly && art.IsRead {
			continue
		}
		if filter.FavoritesOnly && !art.IsFavorite {
			continue
		}
		c := cloneArticle(art)
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		if out[i].Link != out[j].Link {
			return out[i].Link < out[j].Link
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domain.Article{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpdateArticleState(_ context.Context, id uuid.UUID, state domain.ArticleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	art, ok := s.articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, storage.ErrNotFound)
	}
	art.Apply(state)
	s.articles[id] = art
	return nil
}

func (s *Store) UpdateArticleKeywords(_ context.Context, id uuid.UUID, keywords domain.KeywordWeights) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	art, ok := s.articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, storage.ErrNotFound)
	}
	art.Keywords = maps.Clone(keywords)
	s.articles[id] = art
	return nil
}

// ---------- Keyword groups ----------

func (s *Store) CreateGroup(_ context.Context, group *domain.KeywordGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if _, ok := s.groups[group.ID]; ok {
		return fmt.Errorf("keyword group %s: %w", group.ID, storage.ErrConflict)
	}
	s.groups[group.ID] = cloneGroup(*group)
	return nil
}

func (s *Store) GetGroup(_ context.Context, id uuid.UUID) (*domain.KeywordGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("keyword group %s: %w", id, storage.ErrNotFound)
	}
	out := cloneGroup(g)
	return &out, nil
}

func (s *Store) ListGroups(_ context.Context, activeOnly bool) ([]*domain.KeywordGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.KeywordGroup, 0, len(s.groups))
	for _, g := range s.groups {
		if activeOnly && !g.Active {
			continue
		}
		c := cloneGroup(g)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) DeleteGroup(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("keyword group %s: %w", id, storage.ErrNotFound)
	}
	delete(s.groups, id)
	return nil
}

func cloneSource(src domain.Source) domain.Source {
	if src.LastUpdated != nil {
		t := *src.LastUpdated
		src.LastUpdated = &t
	}
	return src
}

func cloneArticle(a domain.Article) domain.Article {
	a.Keywords = maps.Clone(a.Keywords)
	return a
}

func cloneGroup(g domain.KeywordGroup) domain.KeywordGroup {
	g.Keywords = append(domain.StringArray(nil), g.Keywords...)
	return g
}

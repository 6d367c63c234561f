// Package storage defines the persistence contract for sources, articles and keyword groups.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a create would violate a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

// Store is the full persistence contract.
type Store interface {
	SourceStore
	ArticleStore
	GroupStore
	Close() error
}

// SourceStore persists feed sources.
type SourceStore interface {
	CreateSource(ctx context.Context, source *domain.Source) error
	GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	// ListSources returns sources ordered by title then ID.
	ListSources(ctx context.Context, activeOnly bool) ([]*domain.Source, error)
	SaveSource(ctx context.Context, source *domain.Source) error
	// MarkSourceFetched records a successful fetch without touching user-edited fields.
	MarkSourceFetched(ctx context.Context, id uuid.UUID, state domain.FetchState) error
	// DeleteSource removes a source and its articles.
	DeleteSource(ctx context.Context, id uuid.UUID) error
}

// ArticleStore persists articles.
type ArticleStore interface {
	GetArticle(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	ArticlesForSource(ctx context.Context, sourceID uuid.UUID) ([]*domain.Article, error)
	// ExistingLinksForSource returns the set of links already stored for a source.
	ExistingLinksForSource(ctx context.Context, sourceID uuid.UUID) (map[string]struct{}, error)
	// InsertArticles stores a batch atomically. Articles whose (SourceID, Link) already
	// exists are ignored, never updated. It returns how many rows were inserted.
	InsertArticles(ctx context.Context, articles []*domain.Article) (int, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]*domain.Article, error)
	UpdateArticleState(ctx context.Context, id uuid.UUID, state domain.ArticleState) error
	UpdateArticleKeywords(ctx context.Context, id uuid.UUID, keywords domain.KeywordWeights) error
}

// GroupStore persists keyword groups.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *domain.KeywordGroup) error
	GetGroup(ctx context.Context, id uuid.UUID) (*domain.KeywordGroup, error)
	ListGroups(ctx context.Context, activeOnly bool) ([]*domain.KeywordGroup, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
}

// ArticleFilter narrows ListArticles. Results are ordered newest first, then by link.
type ArticleFilter struct {
	SourceID      *uuid.UUID
	UnreadOnly    bool
	FavoritesOnly bool
	// Limit <= 0 means no limit.
	Limit  int
	Offset int
}

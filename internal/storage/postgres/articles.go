package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
)

// insertChunkSize keeps each multi-row INSERT under PostgreSQL's 65535 parameter limit.
const insertChunkSize = 500

const articleSelectColumns = `id, source_id, title, link, summary, content, author, image_url, ` +
	`published_at, is_read, is_favorite, reading_progress, keywords, created_at`

var articleInsertColumns = []string{
	"id", "source_id", "title", "link", "summary", "content", "author", "image_url",
	"published_at", "is_read", "is_favorite", "reading_progress", "keywords", "created_at",
}

// GetArticle loads an article by ID.
func (s *Store) GetArticle(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	var a domain.Article
	query := `SELECT ` + articleSelectColumns + ` FROM articles WHERE id = $1`

	if err := s.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, fmt.Errorf("failed to get article %s: %w", id, translate(err))
	}
	return &a, nil
}

// ArticlesForSource returns a source's articles, newest first.
func (s *Store) ArticlesForSource(ctx context.Context, sourceID uuid.UUID) ([]*domain.Article, error) {
	return s.ListArticles(ctx, storage.ArticleFilter{SourceID: &sourceID})
}

// ExistingLinksForSource returns the links already stored for a source.
func (s *Store) ExistingLinksForSource(ctx context.Context, sourceID uuid.UUID) (map[string]struct{}, error) {
	var links []string
	if err := s.db.SelectContext(ctx, &links, `SELECT link FROM articles WHERE source_id = $1`, sourceID); err != nil {
		return nil, fmt.Errorf("failed to list links for source %s: %w", sourceID, err)
	}

	set := make(map[string]struct{}, len(links))
	for _, l := range links {
		set[l] = struct{}{}
	}
	return set, nil
}

// InsertArticles writes the batch in one transaction with ON CONFLICT DO NOTHING,
// so existing rows and their user state are never touched.
func (s *Store) InsertArticles(ctx context.Context, articles []*domain.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for _, a := range articles {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin article batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for start := 0; start < len(articles); start += insertChunkSize {
		end := min(start+insertChunkSize, len(articles))

		builder := psql.Insert("articles").Columns(articleInsertColumns...)
		for _, a := range articles[start:end] {
			builder = builder.Values(a.ID, a.SourceID, a.Title, a.Link, a.Summary, a.Content, a.Author,
				a.ImageURL, a.PublishedAt, a.IsRead, a.IsFavorite, a.ReadingProgress, a.Keywords, a.CreatedAt)
		}

		query, args, buildErr := builder.Suffix("ON CONFLICT (source_id, link) DO NOTHING").ToSql()
		if buildErr != nil {
			return 0, fmt.Errorf("build article insert: %w", buildErr)
		}

		result, execErr := tx.ExecContext(ctx, query, args...)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert articles: %w", translate(execErr))
		}
		n, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return 0, fmt.Errorf("failed to count inserted articles: %w", affectedErr)
		}
		inserted += int(n)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, fmt.Errorf("failed to commit article batch: %w", commitErr)
	}
	return inserted, nil
}

// ListArticles returns articles matching filter, newest first then by link.
func (s *Store) ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]*domain.Article, error) {
	builder := psql.Select(articleSelectColumns).From("articles").OrderBy("published_at DESC", "link", "id")

	if filter.SourceID != nil {
		builder = builder.Where(sq.Eq{"source_id": filter.SourceID.String()})
	}
	if filter.UnreadOnly {
		builder = builder.Where(sq.Eq{"is_read": false})
	}
	if filter.FavoritesOnly {
		builder = builder.Where(sq.Eq{"is_favorite": true})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list articles query: %w", err)
	}

	var articles []*domain.Article
	if selectErr := s.db.SelectContext(ctx, &articles, query, args...); selectErr != nil {
		return nil, fmt.Errorf("failed to list articles: %w", selectErr)
	}
	if articles == nil {
		articles = []*domain.Article{}
	}
	return articles, nil
}

// UpdateArticleState sets the user-owned fields; progress is clamped to [0,1].
func (s *Store) UpdateArticleState(ctx context.Context, id uuid.UUID, state domain.ArticleState) error {
	var clamped domain.Article
	clamped.Apply(state)

	query, args, err := psql.Update("articles").
		Set("is_read", clamped.IsRead).
		Set("is_favorite", clamped.IsFavorite).
		Set("reading_progress", clamped.ReadingProgress).
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update article state query: %w", err)
	}

	result, execErr := s.db.ExecContext(ctx, query, args...)
	if reqErr := execRequireRows(result, execErr, fmt.Errorf("article %s: %w", id, storage.ErrNotFound)); reqErr != nil {
		return fmt.Errorf("failed to update article state: %w", reqErr)
	}
	return nil
}

// UpdateArticleKeywords replaces an article's persisted keyword map.
func (s *Store) UpdateArticleKeywords(ctx context.Context, id uuid.UUID, keywords domain.KeywordWeights) error {
	result, err := s.db.ExecContext(ctx, `UPDATE articles SET keywords = $2 WHERE id = $1`, id, keywords)
	if reqErr := execRequireRows(result, err, fmt.Errorf("article %s: %w", id, storage.ErrNotFound)); reqErr != nil {
		return fmt.Errorf("failed to update article keywords: %w", reqErr)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
)

const sourceSelectColumns = `id, title, feed_url, site_url, category, active, last_updated, etag, last_modified`

// CreateSource inserts a source, assigning an ID when unset.
func (s *Store) CreateSource(ctx context.Context, source *domain.Source) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}

	query, args, err := psql.Insert("sources").
		Columns("id", "title", "feed_url", "site_url", "category", "active", "last_updated", "etag", "last_modified").
		Values(source.ID, source.Title, source.FeedURL, source.SiteURL, source.Category, source.Active,
			source.LastUpdated, source.ETag, source.LastModified).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create source query: %w", err)
	}

	if _, execErr := s.db.ExecContext(ctx, query, args...); execErr != nil {
		return fmt.Errorf("failed to create source %s: %w", source.FeedURL, translate(execErr))
	}
	return nil
}

// GetSource loads a source by ID.
func (s *Store) GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	var src domain.Source
	query := `SELECT ` + sourceSelectColumns + ` FROM sources WHERE id = $1`

	if err := s.db.GetContext(ctx, &src, query, id); err != nil {
		return nil, fmt.Errorf("failed to get source %s: %w", id, translate(err))
	}
	return &src, nil
}

// ListSources returns sources ordered by title then ID.
func (s *Store) ListSources(ctx context.Context, activeOnly bool) ([]*domain.Source, error) {
	builder := psql.Select(sourceSelectColumns).From("sources").OrderBy("title", "id")
	if activeOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sources query: %w", err)
	}

	var sources []*domain.Source
	if selectErr := s.db.SelectContext(ctx, &sources, query, args...); selectErr != nil {
		return nil, fmt.Errorf("failed to list sources: %w", selectErr)
	}
	if sources == nil {
		sources = []*domain.Source{}
	}
	return sources, nil
}

// SaveSource overwrites every mutable column of an existing source.
func (s *Store) SaveSource(ctx context.Context, source *domain.Source) error {
	query, args, err := psql.Update("sources").
		Set("title", source.Title).
		Set("feed_url", source.FeedURL).
		Set("site_url", source.SiteURL).
		Set("category", source.Category).
		Set("active", source.Active).
		Set("last_updated", source.LastUpdated).
		Set("etag", source.ETag).
		Set("last_modified", source.LastModified).
		Where(sq.Eq{"id": source.ID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save source query: %w", err)
	}

	result, execErr := s.db.ExecContext(ctx, query, args...)
	if reqErr := execRequireRows(result, translate(execErr), fmt.Errorf("source %s: %w", source.ID, storage.ErrNotFound)); reqErr != nil {
		return fmt.Errorf("failed to save source: %w", reqErr)
	}
	return nil
}

// MarkSourceFetched sets last_updated and any non-empty validators.
func (s *Store) MarkSourceFetched(ctx context.Context, id uuid.UUID, state domain.FetchState) error {
	builder := psql.Update("sources").Set("last_updated", state.LastUpdated)
	if state.ETag != "" {
		builder = builder.Set("etag", state.ETag)
	}
	if state.LastModified != "" {
		builder = builder.Set("last_modified", state.LastModified)
	}

	query, args, err := builder.Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return fmt.Errorf("build mark source fetched query: %w", err)
	}

	result, execErr := s.db.ExecContext(ctx, query, args...)
	if reqErr := execRequireRows(result, translate(execErr), fmt.Errorf("source %s: %w", id, storage.ErrNotFound)); reqErr != nil {
		return fmt.Errorf("failed to mark source fetched: %w", reqErr)
	}
	return nil
}

// DeleteSource removes a source; its articles go with it (ON DELETE CASCADE).
func (s *Store) DeleteSource(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if reqErr := execRequireRows(result, err, fmt.Errorf("source %s: %w", id, storage.ErrNotFound)); reqErr != nil {
		return fmt.Errorf("failed to delete source: %w", reqErr)
	}
	return nil
}

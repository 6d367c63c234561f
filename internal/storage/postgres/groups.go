package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
)

const groupSelectColumns = `id, name, keywords, active`

// CreateGroup inserts a keyword group, assigning an ID when unset.
func (s *Store) CreateGroup(ctx context.Context, group *domain.KeywordGroup) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}

	query, args, err := psql.Insert("keyword_groups").
		Columns("id", "name", "keywords", "active").
		Values(group.ID, group.Name, group.Keywords, group.Active).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create group query: %w", err)
	}

	if _, execErr := s.db.ExecContext(ctx, query, args...); execErr != nil {
		return fmt.Errorf("failed to create keyword group %s: %w", group.Name, translate(execErr))
	}
	return nil
}

// GetGroup loads a keyword group by ID.
func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (*domain.KeywordGroup, error) {
	var g domain.KeywordGroup
	query := `SELECT ` + groupSelectColumns + ` FROM keyword_groups WHERE id = $1`

	if err := s.db.GetContext(ctx, &g, query, id); err != nil {
		return nil, fmt.Errorf("failed to get keyword group %s: %w", id, translate(err))
	}
	return &g, nil
}

// ListGroups returns keyword groups ordered by name then ID.
func (s *Store) ListGroups(ctx context.Context, activeOnly bool) ([]*domain.KeywordGroup, error) {
	builder := psql.Select(groupSelectColumns).From("keyword_groups").OrderBy("name", "id")
	if activeOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list groups query: %w", err)
	}

	var groups []*domain.KeywordGroup
	if selectErr := s.db.SelectContext(ctx, &groups, query, args...); selectErr != nil {
		return nil, fmt.Errorf("failed to list keyword groups: %w", selectErr)
	}
	if groups == nil {
		groups = []*domain.KeywordGroup{}
	}
	return groups, nil
}

// DeleteGroup removes a keyword group.
func (s *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM keyword_groups WHERE id = $1`, id)
	if reqErr := execRequireRows(result, err, fmt.Errorf("keyword group %s: %w", id, storage.ErrNotFound)); reqErr != nil {
		return fmt.Errorf("failed to delete keyword group: %w", reqErr)
	}
	return nil
}

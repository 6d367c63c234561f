package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// RelationType classifies how a target article relates to a source article.
type RelationType string

const (
	// RelationPrerequisite: the target was published before the source.
	RelationPrerequisite RelationType = "prerequisite"
	// RelationExtension: the target goes substantially deeper than the source.
	RelationExtension RelationType = "extension"
	// RelationSimilar is everything else.
	RelationSimilar RelationType = "similar"
)

// String implements fmt.Stringer.
func (t RelationType) String() string { return string(t) }

// Valid reports whether t is one of the known relation types.
func (t RelationType) Valid() bool {
	switch t {
	case RelationPrerequisite, RelationExtension, RelationSimilar:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t RelationType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid relation type %q", string(t))
	}
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RelationType) UnmarshalText(b []byte) error {
	v := RelationType(b)
	if !v.Valid() {
		return fmt.Errorf("invalid relation type %q", string(b))
	}
	*t = v
	return nil
}

// ArticleRelation links two articles. Relations are recomputed on demand, never mutated.
type ArticleRelation struct {
	SourceArticleID uuid.UUID    `json:"source_article_id"`
	TargetArticleID uuid.UUID    `json:"target_article_id"`
	Type            RelationType `json:"type"`
	// Score is cosine similarity in [0,1].
	Score float64 `json:"score"`
}

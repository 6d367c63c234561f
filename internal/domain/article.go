// Package domain provides the reader's domain models.
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Article is a persisted feed entry. Exactly one Article exists per (SourceID, Link).
type Article struct {
	ID       uuid.UUID `db:"id"        json:"id"`
	SourceID uuid.UUID `db:"source_id" json:"source_id"`
	Title    string    `db:"title"     json:"title"`
	// Link is absolute and, together with SourceID, unique.
	Link     string `db:"link"      json:"link"`
	Summary  string `db:"summary"   json:"summary,omitempty"`
	Content  string `db:"content"   json:"content,omitempty"`
	Author   string `db:"author"    json:"author,omitempty"`
	ImageURL string `db:"image_url" json:"image_url,omitempty"`

	PublishedAt time.Time `db:"published_at" json:"published_at"`

	// User-owned state. Ingestion never overwrites these on an existing article.
	IsRead          bool    `db:"is_read"          json:"is_read"`
	IsFavorite      bool    `db:"is_favorite"      json:"is_favorite"`
	ReadingProgress float64 `db:"reading_progress" json:"reading_progress"`

	Keywords  KeywordWeights `db:"keywords"   json:"keywords,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// SetReadingProgress stores p clamped to [0,1].
func (a *Article) SetReadingProgress(p float64) {
	switch {
	case p < 0 || math.IsNaN(p):
		a.ReadingProgress = 0
	case p > 1:
		a.ReadingProgress = 1
	default:
		a.ReadingProgress = p
	}
}

// ArticleState is the user-owned part of an Article.
type ArticleState struct {
	IsRead          bool
	IsFavorite      bool
	ReadingProgress float64
}

// State returns the article's user-owned state.
func (a *Article) State() ArticleState {
	return ArticleState{
		IsRead:          a.IsRead,
		IsFavorite:      a.IsFavorite,
		ReadingProgress: a.ReadingProgress,
	}
}

// Apply copies s onto the article, clamping the progress.
func (a *Article) Apply(s ArticleState) {
	a.IsRead = s.IsRead
	a.IsFavorite = s.IsFavorite
	a.SetReadingProgress(s.ReadingProgress)
}

// Text returns the text used for keyword extraction: title, summary and content.
func (a *Article) Text() string {
	return a.Title + "\n" + a.Summary + "\n" + a.Content
}

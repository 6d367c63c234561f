package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source is a subscribed feed.
type Source struct {
	ID       uuid.UUID `db:"id"        json:"id"`
	Title    string    `db:"title"     json:"title"`
	FeedURL  string    `db:"feed_url"  json:"feed_url"`
	SiteURL  string    `db:"site_url"  json:"site_url,omitempty"`
	Category string    `db:"category"  json:"category,omitempty"`
	Active   bool      `db:"active"    json:"active"`

	// LastUpdated is set by the ingestion engine after a successful cycle only.
	LastUpdated *time.Time `db:"last_updated" json:"last_updated,omitempty"`

	// Conditional GET validators from the last successful fetch.
	ETag         string `db:"etag"          json:"etag,omitempty"`
	LastModified string `db:"last_modified" json:"last_modified,omitempty"`
}

// KeywordGroup is a named set of keywords used as a topic filter.
type KeywordGroup struct {
	ID       uuid.UUID   `db:"id"       json:"id"`
	Name     string      `db:"name"     json:"name"`
	Keywords StringArray `db:"keywords" json:"keywords"`
	Active   bool        `db:"active"   json:"active"`
}

// Feed is a normalized feed document. It is never persisted.
type Feed struct {
	Title       string
	Description string
	SiteLink    string
	Entries     []FeedEntry
}

// FeedEntry is a normalized entry. Link is absolute and PublishedAt is set.
type FeedEntry struct {
	Title       string
	Link        string
	Summary     string
	Content     string
	Author      string
	PublishedAt time.Time
	ImageURL    string
}

// FetchState is what a successful ingestion cycle records on its source.
// Empty validators leave the stored ones unchanged.
type FetchState struct {
	LastUpdated  time.Time
	ETag         string
	LastModified string
}

// Package feed discovers, fetches, parses and normalizes RSS 2.0, Atom and JSON Feed documents.
package feed

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	jsonfeed "github.com/mmcdole/gofeed/json"
	"github.com/mmcdole/gofeed/rss"
)

// Variant is the wire format of a feed document.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantRSS
	VariantAtom
	VariantJSON
)

func (v Variant) String() string {
	switch v {
	case VariantRSS:
		return "rss"
	case VariantAtom:
		return "atom"
	case VariantJSON:
		return "json"
	case VariantUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Document is a parsed feed in exactly one wire format.
// Exactly one of RSS, Atom and JSON is set, matching Variant.
type Document struct {
	Variant Variant
	RSS     *rss.Feed
	Atom    *atom.Feed
	JSON    *jsonfeed.Feed
}

// RSSDocument wraps an RSS feed.
func RSSDocument(f *rss.Feed) Document { return Document{Variant: VariantRSS, RSS: f} }

// AtomDocument wraps an Atom feed.
func AtomDocument(f *atom.Feed) Document { return Document{Variant: VariantAtom, Atom: f} }

// JSONDocument wraps a JSON Feed.
func JSONDocument(f *jsonfeed.Feed) Document { return Document{Variant: VariantJSON, JSON: f} }

var errUndetectedFormat = errors.New("body is not an RSS, Atom or JSON feed")

// Parse detects the wire format of body and parses it.
// Failures are returned as *Error with type ErrTypeParse; no partial document is returned.
func Parse(body []byte) (Document, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(body)) {
	case gofeed.FeedTypeRSS:
		f, err := (&rss.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return Document{}, ClassifyParseError(fmt.Errorf("parse rss: %w", err), "")
		}
		return RSSDocument(f), nil

	case gofeed.FeedTypeAtom:
		f, err := (&atom.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return Document{}, ClassifyParseError(fmt.Errorf("parse atom: %w", err), "")
		}
		return AtomDocument(f), nil

	case gofeed.FeedTypeJSON:
		f, err := (&jsonfeed.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return Document{}, ClassifyParseError(fmt.Errorf("parse json feed: %w", err), "")
		}
		return JSONDocument(f), nil

	case gofeed.FeedTypeUnknown:
		return Document{}, ClassifyParseError(errUndetectedFormat, "")

	default:
		return Document{}, ClassifyParseError(errUndetectedFormat, "")
	}
}

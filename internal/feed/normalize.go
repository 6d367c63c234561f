package feed

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	jsonfeed "github.com/mmcdole/gofeed/json"
	"github.com/mmcdole/gofeed/rss"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

// titleFallbackRunes is how much of the description becomes a missing title.
const titleFallbackRunes = 60

// SkipReason says why an entry was dropped during normalization.
type SkipReason string

const (
	SkipNoTitle SkipReason = "no_title"
	SkipNoLink  SkipReason = "no_link"
	SkipNoDate  SkipReason = "no_date"
)

// NormalizeStats counts what happened to a document's entries.
type NormalizeStats struct {
	Total   int
	Kept    int
	Skipped map[SkipReason]int
}

// Normalizer maps a parsed Document onto domain.Feed.
type Normalizer struct {
	log logger.Logger
}

// NewNormalizer returns a Normalizer. A nil logger discards skip diagnostics.
func NewNormalizer(log logger.Logger) *Normalizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Normalizer{log: log.With(logger.Component("feed-normalizer"))}
}

// rawEntry is an entry after variant-specific mapping, before validation.
type rawEntry struct {
	title     string
	link      string
	summary   string
	content   string
	author    string
	published *time.Time
	image     string
}

// Normalize converts doc into a Feed. Entries without a title (or a description to
// derive one from), an absolute link, or a timestamp are skipped and counted.
// A document with no valid entries yields an empty Feed. ErrUnknownVariant is
// returned for a Document that was not built by Parse or a variant constructor.
func (n *Normalizer) Normalize(doc Document) (domain.Feed, NormalizeStats, error) {
	var (
		out  domain.Feed
		raws []rawEntry
	)

	switch doc.Variant {
	case VariantRSS:
		if doc.RSS == nil {
			return domain.Feed{}, NormalizeStats{}, ErrUnknownVariant
		}
		out, raws = fromRSS(doc.RSS)
	case VariantAtom:
		if doc.Atom == nil {
			return domain.Feed{}, NormalizeStats{}, ErrUnknownVariant
		}
		out, raws = fromAtom(doc.Atom)
	case VariantJSON:
		if doc.JSON == nil {
			return domain.Feed{}, NormalizeStats{}, ErrUnknownVariant
		}
		out, raws = fromJSON(doc.JSON)
	case VariantUnknown:
		return domain.Feed{}, NormalizeStats{}, ErrUnknownVariant
	default:
		return domain.Feed{}, NormalizeStats{}, ErrUnknownVariant
	}

	stats := NormalizeStats{Total: len(raws), Skipped: make(map[SkipReason]int)}
	out.Entries = make([]domain.FeedEntry, 0, len(raws))

	for i := range raws {
		entry, reason, ok := finalize(&raws[i], out.SiteLink)
		if !ok {
			stats.Skipped[reason]++
			n.log.Debug("skipping feed entry",
				logger.String("variant", doc.Variant.String()),
				logger.Int("index", i),
				logger.String("reason", string(reason)),
				logger.String("link", raws[i].link),
			)
			continue
		}
		out.Entries = append(out.Entries, entry)
	}
	stats.Kept = len(out.Entries)

	return out, stats, nil
}

func finalize(raw *rawEntry, siteLink string) (domain.FeedEntry, SkipReason, bool) {
	summary := strings.TrimSpace(raw.summary)

	title := strings.Join(strings.Fields(raw.title), " ")
	if title == "" {
		title = truncateRunes(stripTags(summary), titleFallbackRunes)
	}
	if title == "" {
		return domain.FeedEntry{}, SkipNoTitle, false
	}

	link := resolveURL(siteLink, raw.link)
	if link == "" {
		return domain.FeedEntry{}, SkipNoLink, false
	}

	if raw.published == nil || raw.published.IsZero() {
		return domain.FeedEntry{}, SkipNoDate, false
	}

	content := strings.TrimSpace(raw.content)

	return domain.FeedEntry{
		Title:       title,
		Link:        link,
		Summary:     summary,
		Content:     content,
		Author:      strings.TrimSpace(raw.author),
		PublishedAt: raw.published.UTC(),
		ImageURL:    primaryImage(raw.image, content, summary, link),
	}, "", true
}

// primaryImage picks explicit media first, then the first <img> in content, then in summary.
func primaryImage(explicit, content, summary, base string) string {
	for _, candidate := range []string{explicit, firstImageSrc(content), firstImageSrc(summary)} {
		if resolved := resolveURL(base, candidate); resolved != "" {
			return resolved
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit])) + "…"
}

func fromRSS(f *rss.Feed) (domain.Feed, []rawEntry) {
	out := domain.Feed{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		SiteLink:    strings.TrimSpace(f.Link),
	}

	raws := make([]rawEntry, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		raw := rawEntry{
			title:     item.Title,
			link:      strings.TrimSpace(item.Link),
			summary:   item.Description,
			content:   item.Content,
			author:    item.Author,
			published: item.PubDateParsed,
		}
		if raw.link == "" && item.GUID != nil && !strings.EqualFold(item.GUID.IsPermalink, "false") &&
			isAbsoluteHTTP(strings.TrimSpace(item.GUID.Value)) {
			raw.link = strings.TrimSpace(item.GUID.Value)
		}
		if item.Enclosure != nil && isImageType(item.Enclosure.Type) {
			raw.image = item.Enclosure.URL
		}
		if raw.image == "" {
			raw.image = mediaImage(item.Extensions)
		}
		raws = append(raws, raw)
	}
	return out, raws
}

func fromAtom(f *atom.Feed) (domain.Feed, []rawEntry) {
	out := domain.Feed{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Subtitle),
		SiteLink:    atomAlternate(f.Links),
	}

	raws := make([]rawEntry, 0, len(f.Entries))
	for _, entry := range f.Entries {
		if entry == nil {
			continue
		}
		raw := rawEntry{
			title:     entry.Title,
			link:      atomAlternate(entry.Links),
			summary:   entry.Summary,
			published: entry.PublishedParsed,
		}
		if raw.published == nil {
			raw.published = entry.UpdatedParsed
		}
		if entry.Content != nil {
			raw.content = entry.Content.Value
		}
		for _, p := range entry.Authors {
			if p != nil && strings.TrimSpace(p.Name) != "" {
				raw.author = p.Name
				break
			}
		}
		for _, l := range entry.Links {
			if l != nil && l.Rel == "enclosure" && isImageType(l.Type) {
				raw.image = l.Href
				break
			}
		}
		if raw.image == "" {
			raw.image = mediaImage(entry.Extensions)
		}
		raws = append(raws, raw)
	}
	return out, raws
}

func fromJSON(f *jsonfeed.Feed) (domain.Feed, []rawEntry) {
	out := domain.Feed{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		SiteLink:    strings.TrimSpace(f.HomePageURL),
	}

	raws := make([]rawEntry, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		raw := rawEntry{
			title:   item.Title,
			link:    strings.TrimSpace(item.URL),
			summary: item.Summary,
			content: item.ContentHTML,
			image:   item.Image,
		}
		if raw.link == "" {
			raw.link = strings.TrimSpace(item.ExternalURL)
		}
		if raw.content == "" {
			raw.content = item.ContentText
		}
		if raw.image == "" {
			raw.image = item.BannerImage
		}
		if item.Author != nil {
			raw.author = item.Author.Name
		}
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(item.DatePublished)); err == nil {
			raw.published = &ts
		}
		raws = append(raws, raw)
	}
	return out, raws
}

// atomAlternate returns the rel="alternate" (or rel-less) link, else the first link.
func atomAlternate(links []*atom.Link) string {
	var first string
	for _, l := range links {
		if l == nil || strings.TrimSpace(l.Href) == "" {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
		if first == "" {
			first = strings.TrimSpace(l.Href)
		}
	}
	return first
}

// mediaImage reads media:content and media:thumbnail, including inside media:group.
func mediaImage(exts ext.Extensions) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	if src := mediaImageFrom(media); src != "" {
		return src
	}
	for _, group := range media["group"] {
		if src := mediaImageFrom(group.Children); src != "" {
			return src
		}
	}
	return ""
}

func mediaImageFrom(elems map[string][]ext.Extension) string {
	for _, c := range elems["content"] {
		medium := c.Attrs["medium"]
		if medium == "image" || isImageType(c.Attrs["type"]) || (medium == "" && c.Attrs["type"] == "") {
			if u := strings.TrimSpace(c.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	for _, th := range elems["thumbnail"] {
		if u := strings.TrimSpace(th.Attrs["url"]); u != "" {
			return u
		}
	}
	return ""
}

func isImageType(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}

// Package aggregate selects the articles that belong to a keyword group.
package aggregate

import (
	"slices"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

// fieldSeparator keeps a keyword from matching across two fields.
const fieldSeparator = "\x00"

// Matcher matches keyword groups against articles with an Aho-Corasick automaton.
type Matcher struct {
	log logger.Logger
}

// NewMatcher returns a Matcher. A nil logger is allowed.
func NewMatcher(log logger.Logger) *Matcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Matcher{log: log.With(logger.Component("aggregate"))}
}

// MatchGroup returns the articles in which any group keyword occurs, case-insensitively,
// as a substring of the title, summary, content or one of the extracted keywords.
// Input order is preserved. A group without usable keywords matches nothing.
func (m *Matcher) MatchGroup(group *domain.KeywordGroup, articles []*domain.Article) []*domain.Article {
	matched := []*domain.Article{}
	if group == nil {
		return matched
	}

	keywords := normalizeKeywords(group.Keywords)
	if len(keywords) == 0 {
		m.log.Debug("keyword group has no usable keywords",
			logger.String("group_id", group.ID.String()),
			logger.String("group", group.Name),
		)
		return matched
	}

	// A Matcher keeps per-search state, so each call builds its own.
	automaton := ahocorasick.NewStringMatcher(keywords)
	lower := cases.Lower(language.Und)

	for _, a := range articles {
		if a == nil {
			continue
		}
		if len(automaton.Match([]byte(searchText(lower, a)))) > 0 {
			matched = append(matched, a)
		}
	}
	return matched
}

// MatchAll runs MatchGroup for every active group, keyed by group ID.
func (m *Matcher) MatchAll(groups []*domain.KeywordGroup, articles []*domain.Article) map[uuid.UUID][]*domain.Article {
	out := make(map[uuid.UUID][]*domain.Article, len(groups))
	for _, g := range groups {
		if g == nil || !g.Active {
			continue
		}
		out[g.ID] = m.MatchGroup(g, articles)
	}
	return out
}

func normalizeKeywords(raw []string) []string {
	lower := cases.Lower(language.Und)
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		n := strings.TrimSpace(lower.String(kw))
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func searchText(lower cases.Caser, a *domain.Article) string {
	var b strings.Builder
	b.WriteString(lower.String(a.Title))
	b.WriteString(fieldSeparator)
	b.WriteString(lower.String(a.Summary))
	b.WriteString(fieldSeparator)
	b.WriteString(lower.String(a.Content))

	words := make([]string, 0, len(a.Keywords))
	for w := range a.Keywords {
		words = append(words, w)
	}
	slices.Sort(words)
	for _, w := range words {
		b.WriteString(fieldSeparator)
		b.WriteString(lower.String(w))
	}
	return b.String()
}

// Package keyword extracts weighted keywords from text.
//
// Weights are normalized term frequencies (count / total kept tokens), not TF-IDF:
// the reader has no corpus-wide document statistics at extraction time.
package keyword

import (
	"sort"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/text"
)

// DefaultMaxKeywords is how many keywords an article vector keeps.
const DefaultMaxKeywords = 20

// Weights maps keyword to weight in (0,1]. The weights of one extraction sum to at most 1.
type Weights = domain.KeywordWeights

// Keyword is a ranked keyword.
type Keyword struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// Extractor ranks the tokens of a text by frequency.
type Extractor struct {
	tokenizer *text.Tokenizer
}

// NewExtractor returns an Extractor using tokenizer. A nil tokenizer uses text.New().
func NewExtractor(tokenizer *text.Tokenizer) *Extractor {
	if tokenizer == nil {
		tokenizer = text.New()
	}
	return &Extractor{tokenizer: tokenizer}
}

// Extract returns the top maxKeywords keywords of s as a map.
// Empty or stop-word-only text, or maxKeywords <= 0, yields an empty map.
func (e *Extractor) Extract(s string, maxKeywords int) Weights {
	ranked := e.Rank(s, maxKeywords)
	out := make(Weights, len(ranked))
	for _, k := range ranked {
		out[k.Word] = k.Weight
	}
	return out
}

// Rank returns the top maxKeywords keywords of s, heaviest first.
// Equal weights keep the order in which the words first appear.
func (e *Extractor) Rank(s string, maxKeywords int) []Keyword {
	if maxKeywords <= 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	total := 0

	for tok := range e.tokenizer.Tokens(s) {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
		total++
	}

	if total == 0 {
		return nil
	}

	ranked := make([]Keyword, len(order))
	for i, w := range order {
		ranked[i] = Keyword{Word: w, Weight: float64(counts[w]) / float64(total)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})

	if len(ranked) > maxKeywords {
		ranked = ranked[:maxKeywords]
	}
	return ranked
}

// ForArticle extracts keywords from the article's title, summary and content.
func (e *Extractor) ForArticle(a *domain.Article, maxKeywords int) Weights {
	return e.Extract(a.Text(), maxKeywords)
}

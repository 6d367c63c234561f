// Package text splits free text into normalized, filtered word tokens.
package text

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenRunes is the shortest token kept.
const minTokenRunes = 2

// Tokenizer turns text into lowercase word tokens with stop words removed.
// A Tokenizer is safe for concurrent use.
type Tokenizer struct {
	stopWords StopWords
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithLanguages restricts the stop-word list to the given languages.
func WithLanguages(langs ...Language) Option {
	return func(t *Tokenizer) {
		t.stopWords = StopWordsFor(langs...)
	}
}

// WithStopWords replaces the stop-word list. A nil set disables filtering.
func WithStopWords(set StopWords) Option {
	return func(t *Tokenizer) {
		t.stopWords = set
	}
}

// New returns a Tokenizer. By default every built-in stop-word list applies.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{stopWords: StopWordsAll()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize collects Tokens into a slice, in text order.
func (t *Tokenizer) Tokenize(s string) []string {
	var out []string
	for tok := range t.Tokens(s) {
		out = append(out, tok)
	}
	return out
}

// Tokens yields the tokens of s in text order.
//
// Words are maximal runs of letters, digits and combining marks. Han text has no
// spaces, so a Han run is cut at single-character stop words and each piece yields
// its overlapping two-character windows instead.
// Tokens shorter than two runes and stop words are dropped.
func (t *Tokenizer) Tokens(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		normalized := normalize(s)

		var run []rune
		runHan := false

		flush := func() bool {
			defer func() { run = run[:0] }()
			if runHan {
				return t.emitBigrams(run, yield)
			}
			return t.emit(string(run), yield)
		}

		for _, r := range normalized {
			if !isWordRune(r) {
				if len(run) > 0 && !flush() {
					return
				}
				continue
			}

			han := unicode.Is(unicode.Han, r)
			isMark := unicode.IsMark(r)
			if len(run) > 0 && !isMark && han != runHan {
				if !flush() {
					return
				}
			}
			if len(run) == 0 {
				runHan = han
			}
			run = append(run, r)
		}

		if len(run) > 0 {
			flush()
		}
	}
}

func (t *Tokenizer) emit(tok string, yield func(string) bool) bool {
	if utf8.RuneCountInString(tok) < minTokenRunes || t.stopWords.Contains(tok) {
		return true
	}
	return yield(tok)
}

// emitBigrams splits a Han run at single-character stop words, then yields the
// two-character windows of each remaining segment.
func (t *Tokenizer) emitBigrams(run []rune, yield func(string) bool) bool {
	start := 0
	for i := 0; i <= len(run); i++ {
		if i < len(run) && !t.stopWords.Contains(string(run[i])) {
			continue
		}
		if !t.emitWindows(run[start:i], yield) {
			return false
		}
		start = i + 1
	}
	return true
}

func (t *Tokenizer) emitWindows(segment []rune, yield func(string) bool) bool {
	for i := 0; i+1 < len(segment); i++ {
		if !t.emit(string(segment[i:i+2]), yield) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// normalize applies NFKC and lowercases. Casers carry state, so each call builds its own chain.
func normalize(s string) string {
	chain := transform.Chain(norm.NFKC, cases.Lower(language.Und))
	out, _, err := transform.String(chain, s)
	if err != nil {
		return strings.ToLower(norm.NFKC.String(s))
	}
	return out
}

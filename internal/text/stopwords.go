package text

import (
	"fmt"
	"strings"
)

// Language identifies a built-in stop-word list.
type Language string

const (
	English Language = "en"
	Chinese Language = "zh"
)

// Languages lists every built-in stop-word language.
var Languages = []Language{English, Chinese}

// ParseLanguage maps a config value ("en", "english", "zh", "chinese") to a Language.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return English, nil
	case "zh", "chinese", "cn":
		return Chinese, nil
	default:
		return "", fmt.Errorf("unknown stop-word language %q", s)
	}
}

// StopWords is a set of lowercase words excluded from tokenization.
type StopWords map[string]struct{}

// Contains reports whether w is in the set. A nil set contains nothing.
func (s StopWords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// NewStopWords builds a set from words, lowercasing each.
func NewStopWords(words ...string) StopWords {
	set := make(StopWords, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// StopWordsFor returns the union of the built-in lists for langs.
func StopWordsFor(langs ...Language) StopWords {
	set := make(StopWords)
	for _, lang := range langs {
		for _, w := range builtin[lang] {
			set[w] = struct{}{}
		}
	}
	return set
}

// StopWordsAll returns the union of every built-in list.
func StopWordsAll() StopWords {
	return StopWordsFor(Languages...)
}

var builtin = map[Language][]string{
	English: englishStopWords,
	Chinese: chineseStopWords,
}

var englishStopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing", "down",
	"during", "each", "few", "for", "from", "further", "had", "has", "have", "having", "he",
	"her", "here", "hers", "herself", "him", "himself", "his", "how", "i", "if", "in",
	"into", "is", "it", "its", "itself", "just", "me", "more", "most", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or", "other", "our",
	"ours", "ourselves", "out", "over", "own", "same", "she", "should", "so", "some",
	"such", "than", "that", "the", "their", "theirs", "them", "themselves", "then",
	"there", "these", "they", "this", "those", "through", "to", "too", "under", "until",
	"up", "very", "was", "we", "were", "what", "when", "where", "which", "while", "who",
	"whom", "why", "will", "with", "would", "you", "your", "yours", "yourself",
	"yourselves", "s", "t", "don", "ll", "re", "ve",
}

var chineseStopWords = []string{
	"的", "了", "和", "是", "在", "我", "有", "就", "不", "人", "都", "一", "也", "很",
	"到", "说", "要", "去", "你", "会", "着", "没有", "看", "好", "自己", "这", "那",
	"我们", "你们", "他们", "她们", "它们", "这个", "那个", "这些", "那些", "什么",
	"因为", "所以", "但是", "而且", "或者", "如果", "虽然", "可以", "已经", "还是",
	"就是", "只是", "以及", "一个", "这样", "那样", "怎么", "为了", "对于", "关于",
	"然后", "其中", "之一", "通过", "进行", "以后", "以前", "之后", "之前",
}

// Package relation finds articles related to a target by keyword-vector similarity.
//
// Relation types are a heuristic: an earlier candidate is treated as background
// reading (prerequisite), a markedly longer one as a deeper treatment (extension),
// and anything else as similar.
package relation

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/keyword"
)

const (
	// DefaultWorkers bounds concurrent vector computation.
	DefaultWorkers = 4

	// extensionRatio is how much longer a candidate must be to count as an extension.
	extensionRatio = 1.5
)

// Engine scores and classifies candidate articles against a target.
type Engine struct {
	cache   *keyword.Cache
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds concurrent vector computation. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine returns an Engine that derives missing vectors through cache.
// A nil cache gets a private one with default bounds.
func NewEngine(cache *keyword.Cache, opts ...Option) (*Engine, error) {
	if cache == nil {
		c, err := keyword.NewCache(keyword.DefaultCacheSize, keyword.DefaultMaxKeywords, nil)
		if err != nil {
			return nil, fmt.Errorf("relation engine cache: %w", err)
		}
		cache = c
	}

	e := &Engine{cache: cache, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type scored struct {
	article *domain.Article
	score   float64
}

// FindRelated returns up to maxResults relations from target to the articles of pool,
// best first. Ties on score are broken by newer PublishedAt, then by pool order.
// The target itself (same ID) is never returned; maxResults <= 0 yields none.
func (e *Engine) FindRelated(
	ctx context.Context,
	target *domain.Article,
	pool []*domain.Article,
	maxResults int,
) ([]domain.ArticleRelation, error) {
	if target == nil || maxResults <= 0 {
		return []domain.ArticleRelation{}, nil
	}

	candidates := make([]*domain.Article, 0, len(pool))
	for _, a := range pool {
		if a != nil && a.ID != target.ID {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return []domain.ArticleRelation{}, nil
	}

	targetVec := e.vector(target)
	vectors, err := e.vectors(ctx, candidates)
	if err != nil {
		return nil, err
	}

	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{article: c, score: Cosine(targetVec, vectors[i])}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].article.PublishedAt.After(ranked[j].article.PublishedAt)
	})

	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	relations := make([]domain.ArticleRelation, len(ranked))
	for i, r := range ranked {
		relations[i] = domain.ArticleRelation{
			SourceArticleID: target.ID,
			TargetArticleID: r.article.ID,
			Type:            Classify(target, r.article),
			Score:           r.score,
		}
	}
	return relations, nil
}

// vectors computes candidate vectors concurrently, in candidate order.
func (e *Engine) vectors(ctx context.Context, candidates []*domain.Article) ([]keyword.Weights, error) {
	out := make([]keyword.Weights, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.vector(c)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute keyword vectors: %w", err)
	}
	return out, nil
}

// vector prefers the persisted keyword map and falls back to extraction.
func (e *Engine) vector(a *domain.Article) keyword.Weights {
	if len(a.Keywords) > 0 {
		return a.Keywords
	}
	return e.cache.Vector(a)
}

// Cosine returns the cosine similarity of two weight vectors in [0,1].
// Keys are visited in sorted order so Cosine(a, b) == Cosine(b, a) exactly.
// It is 0 when either vector has no positive weight.
func Cosine(a, b keyword.Weights) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	union := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}

	var dot, normA, normB float64
	for _, k := range slices.Sorted(maps.Keys(union)) {
		wa, wb := a[k], b[k]
		dot += wa * wb
		normA += wa * wa
		normB += wb * wb
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(sim) || sim < 0:
		return 0
	case sim > 1:
		return 1
	default:
		return sim
	}
}

// Classify names the relation from target to candidate.
func Classify(target, candidate *domain.Article) domain.RelationType {
	if candidate.PublishedAt.Before(target.PublishedAt) {
		return domain.RelationPrerequisite
	}
	if float64(contentLength(candidate)) > extensionRatio*float64(contentLength(target)) {
		return domain.RelationExtension
	}
	return domain.RelationSimilar
}

// contentLength counts runes of the content, or of the summary when there is none.
func contentLength(a *domain.Article) int {
	if a.Content != "" {
		return utf8.RuneCountInString(a.Content)
	}
	return utf8.RuneCountInString(a.Summary)
}

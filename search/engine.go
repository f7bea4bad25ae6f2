package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/cohort/ai"
	"github.com/poiesic/cohort/catalog"
	"github.com/poiesic/cohort/core"
	"github.com/poiesic/cohort/query"
)

// Weights controls the keyword/semantic blend. Weights are renormalized
// to sum to 1 before use.
type Weights struct {
	Keyword  float64
	Semantic float64
}

// DefaultWeights returns the default 0.3 keyword / 0.7 semantic blend.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.3, Semantic: 0.7}
}

func (w Weights) normalized() Weights {
	sum := w.Keyword + w.Semantic
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{Keyword: w.Keyword / sum, Semantic: w.Semantic / sum}
}

// DefaultOverfetch is the factor by which results are over-fetched before
// downstream similarity filtering, so deduplication does not starve the
// final count.
const DefaultOverfetch = 2.0

// Engine scores catalog variables against parsed queries.
// An Engine is immutable after construction and safe for concurrent use;
// every Search call is a pure function of its inputs and the catalog
// snapshot.
type Engine struct {
	catalog   *catalog.Catalog
	embedder  ai.Embedder
	domains   *query.DomainConfig
	weights   Weights
	overfetch float64
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithWeights sets the keyword/semantic score blend.
func WithWeights(w Weights) Option {
	return func(e *Engine) error {
		e.weights = w.normalized()
		return nil
	}
}

// WithOverfetch sets the over-fetch factor applied before similarity
// filtering. Values below 1 are rejected.
func WithOverfetch(factor float64) Option {
	return func(e *Engine) error {
		if factor < 1 {
			return fmt.Errorf("overfetch factor must be >= 1, got %v", factor)
		}
		e.overfetch = factor
		return nil
	}
}

// WithPoolSize sets the worker pool size for parallel scoring.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a search engine over a catalog snapshot.
// The embedder may be nil, in which case the engine scores keyword-only.
// A nil domain config falls back to the built-in defaults.
func NewEngine(cat *catalog.Catalog, embedder ai.Embedder, domains *query.DomainConfig, opts ...Option) (*Engine, error) {
	if domains == nil {
		domains = query.DefaultDomainConfig()
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		catalog:   cat,
		embedder:  embedder,
		domains:   domains,
		weights:   DefaultWeights(),
		overfetch: DefaultOverfetch,
		pool:      pool,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Release()
			return nil, err
		}
	}

	return e, nil
}

// Release releases the scoring worker pool.
// The engine should not be used after calling Release.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Search scores the catalog against the query context and returns up to
// topK x overfetch results ordered by (score desc, code asc). The caller
// applies similarity filtering and truncates to topK.
func (e *Engine) Search(ctx context.Context, qc core.QueryContext, topK int) ([]core.SearchResult, error) {
	return e.search(ctx, qc, topK, e.weights, nil)
}

// SearchWeighted is Search with a per-call weight override.
func (e *Engine) SearchWeighted(ctx context.Context, qc core.QueryContext, topK int, w Weights) ([]core.SearchResult, error) {
	return e.search(ctx, qc, topK, w.normalized(), nil)
}

// SearchWithMonitor is Search with stage callbacks.
func (e *Engine) SearchWithMonitor(ctx context.Context, qc core.QueryContext, topK int, monitor Monitor) ([]core.SearchResult, error) {
	return e.search(ctx, qc, topK, e.weights, monitor)
}

func (e *Engine) search(ctx context.Context, qc core.QueryContext, topK int, weights Weights, monitor Monitor) ([]core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if topK < 1 {
		topK = 1
	}

	monitor.Start(qc)

	if e.catalog == nil || e.catalog.Len() == 0 {
		return nil, core.ErrNotReady
	}

	limit := int(math.Ceil(float64(topK) * e.overfetch))

	// Degenerate query: spread across categories instead of returning empty
	if qc.IsEmpty() {
		monitor.Fallback()
		results := e.categorySpread(limit)
		monitor.Finish(results)
		return results, nil
	}

	queryVec := e.embedQuery(ctx, qc)
	monitor.SemanticAvailable(queryVec != nil)

	if queryVec == nil {
		// Redistribute the semantic weight so the blend still sums to 1
		weights = Weights{Keyword: weights.Keyword + weights.Semantic, Semantic: 0}
	}

	boost := 1.0
	if qc.Domain != "" {
		boost = e.domains.Boost(qc.Domain)
	}

	indexed := e.catalog.Indexed()
	scored := make([]core.SearchResult, len(indexed))
	phrase := strings.ToLower(strings.TrimSpace(qc.Raw))

	e.parallelFor(len(indexed), func(i int) {
		scored[i] = e.scoreVariable(&indexed[i], qc, phrase, queryVec, weights, boost)
	})

	results := make([]core.SearchResult, 0, len(scored))
	for _, r := range scored {
		if r.Score > 0 {
			results = append(results, r)
		}
	}
	monitor.AfterScoring(len(results))

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Variable.Code < results[j].Variable.Code
	})

	if len(results) > limit {
		results = results[:limit]
	}
	monitor.Finish(results)

	return results, nil
}

// embedQuery returns the query embedding, or nil when the semantic term is
// unavailable (no embedder, embeddings not attached, or embedding failure).
// Failures degrade to keyword-only scoring rather than failing the search.
func (e *Engine) embedQuery(ctx context.Context, qc core.QueryContext) []float32 {
	if e.embedder == nil || !e.catalog.EmbeddingsReady() {
		return nil
	}
	vec, err := e.embedder.EmbedText(ctx, qc.Raw)
	if err != nil {
		e.logger.Warn("query embedding failed, degrading to keyword-only", "err", err)
		return nil
	}
	if len(vec) == 0 {
		return nil
	}
	return vec
}

// scoreVariable computes the blended score for one catalog record.
func (e *Engine) scoreVariable(
	iv *catalog.IndexedVariable,
	qc core.QueryContext,
	phrase string,
	queryVec []float32,
	weights Weights,
	boost float64,
) core.SearchResult {
	result := core.SearchResult{Variable: iv.Variable}

	kwScore := keywordScore(iv, qc, phrase)
	if kwScore > 0 {
		result.Methods = append(result.Methods, core.MatchKeyword)
	}

	semScore := 0.0
	if queryVec != nil {
		if emb, ok := e.catalog.Embedding(iv.Variable.Code); ok {
			semScore = cosine(queryVec, emb)
			if semScore < 0 {
				semScore = 0
			}
			if semScore > 0 {
				result.Methods = append(result.Methods, core.MatchSemantic)
			}
		}
	}

	score := weights.Keyword*kwScore + weights.Semantic*semScore
	if score <= 0 {
		return result
	}

	applied := 1.0
	if qc.Domain != "" && e.domains.MatchesDomain(qc.Domain, iv.Text) {
		score *= boost
		applied = boost
	}
	if score > 1 {
		score = 1
	}

	result.Score = score
	result.Explanation = fmt.Sprintf("keyword=%.3f semantic=%.3f domain_boost=%.2f", kwScore, semScore, applied)
	return result
}

// keywordScore computes the normalized lexical score in [0,1]:
// a contiguous phrase match outranks scattered full-token coverage,
// which outranks partial concept overlap; numeric-range overlap adds a
// capped boost.
func keywordScore(iv *catalog.IndexedVariable, qc core.QueryContext, phrase string) float64 {
	score := 0.0
	if phrase != "" && strings.Contains(iv.Text, phrase) {
		score = 1.0
	} else if phrase != "" && query.ContainsAllTokens(iv.Text, phrase) {
		score = 0.9
	} else if len(qc.Concepts) > 0 {
		matched := 0
		for _, concept := range qc.Concepts {
			if iv.Tokens[concept] || (strings.ContainsRune(concept, ' ') && strings.Contains(iv.Text, concept)) {
				matched++
			}
		}
		score = 0.8 * float64(matched) / float64(len(qc.Concepts))
	}

	for _, qr := range qc.Ranges {
		overlapped := false
		for _, vr := range iv.Ranges {
			if qr.Unit == vr.Unit && qr.Overlaps(vr) {
				overlapped = true
				break
			}
		}
		if overlapped {
			score += 0.2
			break
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

// categorySpread builds a fallback result list that round-robins across
// categories, so a degenerate query still surfaces a diverse top-N.
// The spread order is itself the ranking; all results carry the same
// nominal score.
func (e *Engine) categorySpread(limit int) []core.SearchResult {
	const fallbackScore = 0.1

	categories := e.catalog.Categories()
	indexed := e.catalog.Indexed()

	var results []core.SearchResult
	for offset := 0; len(results) < limit; offset++ {
		advanced := false
		for _, category := range categories {
			members := e.catalog.CategoryMembers(category)
			if offset >= len(members) {
				continue
			}
			advanced = true
			iv := indexed[members[offset]]
			results = append(results, core.SearchResult{
				Variable:    iv.Variable,
				Score:       fallbackScore,
				Methods:     []core.MatchMethod{core.MatchFallback},
				Explanation: "category spread fallback",
			})
			if len(results) == limit {
				break
			}
		}
		if !advanced {
			break
		}
	}
	return results
}

// parallelFor runs fn for each index in [0, n) across the worker pool.
// Falls back to sequential execution for small inputs.
func (e *Engine) parallelFor(n int, fn func(i int)) {
	const chunkSize = 2048

	if n <= chunkSize {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		lo, hi := start, end
		if err := e.pool.Submit(func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}); err != nil {
			// Pool unavailable (released); do the chunk inline
			for i := lo; i < hi; i++ {
				fn(i)
			}
			wg.Done()
		}
	}
	wg.Wait()
}

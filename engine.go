// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cohort

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/cohort/ai"
	"github.com/poiesic/cohort/catalog"
	"github.com/poiesic/cohort/core"
	"github.com/poiesic/cohort/query"
	"github.com/poiesic/cohort/search"
	"github.com/poiesic/cohort/segment"
	"github.com/poiesic/cohort/similarity"
)

// DefaultTopK is the result count when a search request leaves TopK unset.
const DefaultTopK = 10

// Engine is the root facade: catalog loading, query understanding, hybrid
// search, similarity filtering and segmentation behind one handle.
//
// The catalog loads lazily on the first call that needs it; concurrent
// callers wait for that single load. Embedding vectors attach in the
// background, so early searches may run keyword-only and say so in their
// warnings.
type Engine struct {
	source   catalog.Source
	provider ai.Provider
	domains  *query.DomainConfig
	weights  search.Weights
	parser   *query.Parser
	logger   *slog.Logger

	loadOnce sync.Once
	loaded   chan struct{}
	loadErr  error
	catalog  *catalog.Catalog
	searcher *search.Engine

	embedWG sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine) error

// WithDomainConfig replaces the built-in domain tables used for query
// parsing and score boosting.
func WithDomainConfig(config *query.DomainConfig) Option {
	return func(e *Engine) error {
		if config == nil {
			return fmt.Errorf("domain config is nil")
		}
		e.domains = config
		return nil
	}
}

// WithWeights sets the default keyword/semantic blend. Individual search
// requests may still override it.
func WithWeights(w search.Weights) Option {
	return func(e *Engine) error {
		e.weights = w
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

// New creates an Engine over a catalog source. The provider may be nil,
// in which case search runs keyword-only.
//
// The source is not read here; the first Search or Segment call triggers
// the load.
func New(source catalog.Source, provider ai.Provider, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("catalog source is nil")
	}

	e := &Engine{
		source:   source,
		provider: provider,
		domains:  query.DefaultDomainConfig(),
		weights:  search.DefaultWeights(),
		loaded:   make(chan struct{}),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.parser = query.NewParser(e.domains, query.WithLogger(e.logger))
	return e, nil
}

// Close waits for any background embedding work, then releases the search
// engine and the embedding provider.
func (e *Engine) Close() error {
	e.embedWG.Wait()

	if e.searcher != nil {
		e.searcher.Release()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			return err
		}
	}
	return nil
}

// ready ensures the catalog is loaded, running the load in the first
// caller and blocking others until it finishes or ctx expires.
func (e *Engine) ready(ctx context.Context) error {
	select {
	case <-e.loaded:
		return e.loadErr
	default:
	}

	ran := false
	e.loadOnce.Do(func() {
		ran = true
		e.loadErr = e.load(ctx)
		close(e.loaded)
	})
	if ran {
		return e.loadErr
	}

	select {
	case <-e.loaded:
		return e.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) load(ctx context.Context) error {
	cat, err := catalog.Load(ctx, e.source)
	if err != nil {
		return err
	}

	var embedder ai.Embedder
	if e.provider != nil {
		embedder = e.provider.Embedder()
	}

	searcher, err := search.NewEngine(cat, embedder, e.domains,
		search.WithWeights(e.weights),
		search.WithLogger(e.logger))
	if err != nil {
		return err
	}

	e.catalog = cat
	e.searcher = searcher

	e.embedWG.Add(1)
	go e.attachEmbeddings(cat, embedder)

	return nil
}

// attachEmbeddings runs in the background after load: stored vectors are
// preferred, otherwise vectors are computed from variable descriptions.
// Failures degrade search to keyword-only rather than failing the load.
func (e *Engine) attachEmbeddings(cat *catalog.Catalog, embedder ai.Embedder) {
	defer e.embedWG.Done()
	ctx := context.Background()

	if src, ok := e.source.(catalog.EmbeddingSource); ok {
		if err := catalog.LoadEmbeddings(ctx, cat, src); err != nil {
			e.logger.Warn("stored embedding load failed", "err", err)
		}
	}
	if cat.EmbeddingsReady() || embedder == nil {
		return
	}

	const batchSize = 64
	variables := cat.All()
	vectors := make(map[string][]float32, len(variables))

	for start := 0; start < len(variables); start += batchSize {
		end := start + batchSize
		if end > len(variables) {
			end = len(variables)
		}
		texts := make([]string, 0, end-start)
		for _, v := range variables[start:end] {
			texts = append(texts, v.Description)
		}
		embedded, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			e.logger.Warn("embedding computation failed, search stays keyword-only", "err", err)
			return
		}
		for i, vec := range embedded {
			vectors[variables[start+i].Code] = vec
		}
	}

	cat.AttachEmbeddings(vectors)
	e.logger.Debug("embeddings attached", "count", len(vectors))
}

// SearchRequest describes one variable search.
type SearchRequest struct {
	// Query is the raw audience description.
	Query string

	// TopK caps the returned results. Zero means DefaultTopK.
	TopK int

	// FilterSimilar enables near-duplicate suppression.
	FilterSimilar bool

	// SimilarityThreshold and MaxSimilarPerGroup tune the similarity
	// filter; zero values take the filter defaults.
	SimilarityThreshold float64
	MaxSimilarPerGroup  int

	// Weights overrides the engine's keyword/semantic blend for this
	// request only.
	Weights *search.Weights
}

// SearchResponse is a ranked, optionally de-duplicated result set.
type SearchResponse struct {
	Results []core.SearchResult

	// TotalFound counts matches after similarity filtering but before
	// TopK truncation.
	TotalFound int

	// Interpretation is the parsed form of the query, returned so callers
	// can show users what was understood.
	Interpretation core.QueryContext

	Warnings []core.Warning
}

// Search parses the query, scores the catalog and returns the top results.
// The first call loads the catalog; concurrent callers share that load.
func (e *Engine) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("search request is nil")
	}
	if err := e.ready(ctx); err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK < 1 {
		topK = DefaultTopK
	}

	qc := e.parser.Parse(req.Query)

	var (
		results []core.SearchResult
		err     error
	)
	if req.Weights != nil {
		results, err = e.searcher.SearchWeighted(ctx, qc, topK, *req.Weights)
	} else {
		results, err = e.searcher.Search(ctx, qc, topK)
	}
	if err != nil {
		return nil, err
	}

	var warnings []core.Warning
	if !e.catalog.EmbeddingsReady() {
		warnings = append(warnings, core.NewWarning(core.WarningDegradedEmbeddings,
			"embeddings unavailable, results are keyword-only"))
	}

	if req.FilterSimilar {
		results = similarity.Filter(results, req.SimilarityThreshold, req.MaxSimilarPerGroup)
	}

	totalFound := len(results)
	if len(results) > topK {
		results = results[:topK]
	}

	return &SearchResponse{
		Results:        results,
		TotalFound:     totalFound,
		Interpretation: qc,
		Warnings:       warnings,
	}, nil
}

// SegmentRequest describes one segmentation run over a population.
type SegmentRequest struct {
	// Codes are the confirmed variable codes; every code must exist in
	// the catalog and becomes one clustering dimension.
	Codes []string

	// Records is the population, one value map per individual.
	Records []segment.Record

	// MinFraction and MaxFraction bound each segment's population share.
	// Zero values take the segmentation defaults.
	MinFraction float64
	MaxFraction float64

	// K overrides the derived segment count. Zero derives it from the
	// size band.
	K int
}

// SegmentResponse is a complete, balanced segmentation.
type SegmentResponse struct {
	Segments []core.Segment

	// Total is the population size; Unassigned counts records in no
	// segment (zero unless segmentation is interrupted).
	Total      int
	Unassigned int

	Warnings []core.Warning
}

// Segment clusters the population over the confirmed variables.
// Codes absent from the catalog fail with core.ErrUnknownVariable.
func (e *Engine) Segment(ctx context.Context, req *SegmentRequest) (*SegmentResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("segment request is nil")
	}
	if err := e.ready(ctx); err != nil {
		return nil, err
	}

	if len(req.Codes) == 0 {
		return nil, fmt.Errorf("%w: no variable codes", core.ErrInvalidVariable)
	}
	for _, code := range req.Codes {
		if !e.catalog.Has(code) {
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownVariable, code)
		}
	}

	opts := []segment.Option{segment.WithLogger(e.logger)}
	if req.MinFraction > 0 || req.MaxFraction > 0 {
		opts = append(opts, segment.WithSizeBand(req.MinFraction, req.MaxFraction))
	}
	if req.K > 0 {
		opts = append(opts, segment.WithK(req.K))
	}

	segmenter, err := segment.NewSegmenter(opts...)
	if err != nil {
		return nil, err
	}
	defer segmenter.Release()

	result, err := segmenter.Segment(ctx, req.Records, req.Codes)
	if err != nil {
		return nil, err
	}

	assigned := 0
	for _, s := range result.Segments {
		assigned += s.Size
	}

	return &SegmentResponse{
		Segments:   result.Segments,
		Total:      result.Total,
		Unassigned: result.Total - assigned,
		Warnings:   result.Warnings,
	}, nil
}

// NewSession ties a query to its confirmed variables and segments under a
// deterministic session ID.
func (e *Engine) NewSession(query string, codes []string, segments []core.Segment) core.AudienceSession {
	return core.NewAudienceSession(query, codes, segments)
}

// Catalog returns the loaded catalog snapshot, loading it if necessary.
func (e *Engine) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if err := e.ready(ctx); err != nil {
		return nil, err
	}
	return e.catalog, nil
}

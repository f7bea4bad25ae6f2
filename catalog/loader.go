package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/cohort/core"
)

// Source supplies variable records for a catalog load.
type Source interface {
	// Variables returns every catalog variable record.
	Variables(ctx context.Context) ([]*core.Variable, error)
}

// EmbeddingSource is an optional capability of a Source: precomputed
// embedding vectors keyed by variable code. Sources without embeddings
// simply don't implement it.
type EmbeddingSource interface {
	// Embeddings returns every stored embedding vector.
	Embeddings(ctx context.Context) (map[string][]float32, error)
}

// Load reads all variables from the source and builds an immutable
// catalog snapshot with case-normalized indexes.
//
// Records are validated; duplicate codes or missing required fields fail
// the load. All failures are wrapped in core.ErrCatalogLoad.
//
// Embeddings are NOT loaded here. Records arriving with inline vectors
// have them attached immediately; otherwise callers load them separately
// (usually in the background) and call AttachEmbeddings.
func Load(ctx context.Context, source Source) (*Catalog, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: source is nil", core.ErrCatalogLoad)
	}

	variables, err := source.Variables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCatalogLoad, err)
	}

	seen := make(map[string]bool, len(variables))
	inline := make(map[string][]float32)
	for _, v := range variables {
		if err := core.ValidateVariable(v); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrCatalogLoad, err)
		}
		if seen[v.Code] {
			return nil, fmt.Errorf("%w: %w: %s", core.ErrCatalogLoad, core.ErrDuplicateCode, v.Code)
		}
		seen[v.Code] = true

		if len(v.Embedding) > 0 {
			inline[v.Code] = v.Embedding
		}
	}

	cat := newCatalog(variables)
	if len(inline) > 0 {
		cat.AttachEmbeddings(inline)
	}

	slog.Default().Debug("catalog loaded",
		"variables", cat.Len(),
		"categories", len(cat.Categories()),
		"inline_embeddings", len(inline))

	return cat, nil
}

// LoadEmbeddings fetches vectors from an embedding-capable source and
// attaches them to the catalog. Intended to run in the background after
// Load; until it completes, search degrades to keyword-only scoring.
func LoadEmbeddings(ctx context.Context, cat *Catalog, source EmbeddingSource) error {
	vectors, err := source.Embeddings(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	if len(vectors) == 0 {
		return nil
	}
	cat.AttachEmbeddings(vectors)
	return nil
}

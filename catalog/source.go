package catalog

import (
	"context"

	"github.com/poiesic/cohort/core"
	"github.com/poiesic/cohort/storage"
)

// RepositorySource adapts storage repositories into a catalog Source.
// EmbeddingRepo is optional; when nil the source has no embeddings.
type RepositorySource struct {
	VariableRepo  storage.VariableRepository
	EmbeddingRepo storage.EmbeddingRepository
}

var (
	_ Source          = RepositorySource{}
	_ EmbeddingSource = RepositorySource{}
)

// Variables reads every variable record from the repository.
func (s RepositorySource) Variables(ctx context.Context) ([]*core.Variable, error) {
	return s.VariableRepo.GetAllVariables(ctx)
}

// Embeddings reads every stored embedding vector from the repository.
// Returns an empty map when no embedding repository is configured.
func (s RepositorySource) Embeddings(ctx context.Context) (map[string][]float32, error) {
	if s.EmbeddingRepo == nil {
		return map[string][]float32{}, nil
	}
	return s.EmbeddingRepo.GetAllEmbeddings(ctx)
}

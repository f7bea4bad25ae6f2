package storage

import (
	"context"

	"github.com/poiesic/cohort/core"
)

// VariableRepository provides read/write access to catalog variable records.
// Implementations must be thread-safe and support concurrent access.
type VariableRepository interface {
	// AddVariables adds one or more variables to storage.
	// Records are validated before writing; a category index entry is
	// maintained for each record.
	// Returns ErrDuplicateKey if a code is already present.
	AddVariables(ctx context.Context, variables ...*core.Variable) error

	// GetVariable retrieves a single variable by code.
	// Returns ErrNotFound if the variable doesn't exist.
	GetVariable(ctx context.Context, code string) (*core.Variable, error)

	// GetAllVariables retrieves every variable record, ordered by code.
	GetAllVariables(ctx context.Context) ([]*core.Variable, error)

	// GetCodesByCategory retrieves the codes of all variables in a category.
	GetCodesByCategory(ctx context.Context, category string) ([]string, error)

	// CountVariables returns the number of stored variable records.
	CountVariables(ctx context.Context) (int, error)

	// Close closes the repository and releases resources.
	Close() error
}

// EmbeddingRepository provides access to precomputed variable embeddings,
// keyed by variable code. Embeddings are stored separately from variable
// records so the catalog can load without them and attach them later.
type EmbeddingRepository interface {
	// PutEmbeddings stores embedding vectors for the given codes.
	PutEmbeddings(ctx context.Context, vectors map[string][]float32) error

	// GetEmbedding retrieves the embedding for a single code.
	// Returns ErrNotFound if no embedding is stored for the code.
	GetEmbedding(ctx context.Context, code string) ([]float32, error)

	// GetAllEmbeddings retrieves every stored embedding vector.
	// Returns an empty map when none are stored.
	GetAllEmbeddings(ctx context.Context) (map[string][]float32, error)

	// Close closes the repository and releases resources.
	Close() error
}

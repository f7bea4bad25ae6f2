package badger

import (
	"context"
	"testing"

	"github.com/poiesic/cohort/core"
	"github.com/poiesic/cohort/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVariable(code, category string) *core.Variable {
	return &core.Variable{
		Code:        code,
		Description: "Description for " + code,
		Category:    category,
		Theme:       "General",
		Type:        "boolean",
	}
}

func TestVariableRepository(t *testing.T) {
	variableRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		variableRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	t.Run("add and get", func(t *testing.T) {
		v := testVariable("VEH_OWN", "Automotive")
		require.NoError(t, variableRepo.AddVariables(ctx, v))

		got, err := variableRepo.GetVariable(ctx, "VEH_OWN")
		require.NoError(t, err)
		assert.Equal(t, v, got)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := variableRepo.GetVariable(ctx, "NOPE")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		err := variableRepo.AddVariables(ctx, testVariable("VEH_OWN", "Automotive"))
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("invalid record rejected", func(t *testing.T) {
		invalid := testVariable("BAD", "Automotive")
		invalid.Description = ""
		err := variableRepo.AddVariables(ctx, invalid)
		assert.ErrorIs(t, err, core.ErrInvalidVariable)
	})

	t.Run("get all ordered by code", func(t *testing.T) {
		require.NoError(t, variableRepo.AddVariables(ctx,
			testVariable("AGE_25_34", "Demographics"),
			testVariable("INC_100K", "Financial"),
		))

		all, err := variableRepo.GetAllVariables(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "AGE_25_34", all[0].Code)
		assert.Equal(t, "INC_100K", all[1].Code)
		assert.Equal(t, "VEH_OWN", all[2].Code)
	})

	t.Run("codes by category", func(t *testing.T) {
		codes, err := variableRepo.GetCodesByCategory(ctx, "Automotive")
		require.NoError(t, err)
		assert.Equal(t, []string{"VEH_OWN"}, codes)

		codes, err = variableRepo.GetCodesByCategory(ctx, "Unknown")
		require.NoError(t, err)
		assert.Empty(t, codes)
	})

	t.Run("count", func(t *testing.T) {
		count, err := variableRepo.CountVariables(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestEmbeddingRepository(t *testing.T) {
	_, embeddingRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		embeddingRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	vectors := map[string][]float32{
		"VEH_OWN":   {0.1, 0.2, 0.3},
		"AGE_25_34": {0.4, 0.5, 0.6},
	}
	require.NoError(t, embeddingRepo.PutEmbeddings(ctx, vectors))

	t.Run("get single", func(t *testing.T) {
		vec, err := embeddingRepo.GetEmbedding(ctx, "VEH_OWN")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := embeddingRepo.GetEmbedding(ctx, "NOPE")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("get all", func(t *testing.T) {
		all, err := embeddingRepo.GetAllEmbeddings(ctx)
		require.NoError(t, err)
		assert.Equal(t, vectors, all)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, embeddingRepo.PutEmbeddings(ctx, map[string][]float32{
			"VEH_OWN": {9, 9, 9},
		}))
		vec, err := embeddingRepo.GetEmbedding(ctx, "VEH_OWN")
		require.NoError(t, err)
		assert.Equal(t, []float32{9, 9, 9}, vec)
	})
}

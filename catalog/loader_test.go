package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/cohort/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource is a test Source over an in-memory variable list.
type sliceSource struct {
	variables []*core.Variable
	vectors   map[string][]float32
	err       error
}

func (s sliceSource) Variables(ctx context.Context) ([]*core.Variable, error) {
	return s.variables, s.err
}

func (s sliceSource) Embeddings(ctx context.Context) (map[string][]float32, error) {
	return s.vectors, nil
}

func testVariables() []*core.Variable {
	return []*core.Variable{
		{Code: "VEH_OWN", Description: "Owns a vehicle", Category: "Automotive", Theme: "Ownership", Type: "boolean"},
		{Code: "AGE_25_34", Description: "Age 25 to 34", Category: "Demographics", Theme: "Age", Type: "boolean"},
		{Code: "INC_100K", Description: "Income $100k+", Category: "Financial", Theme: "Income", Type: "boolean"},
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("builds indexes", func(t *testing.T) {
		cat, err := Load(ctx, sliceSource{variables: testVariables()})
		require.NoError(t, err)

		assert.Equal(t, 3, cat.Len())
		assert.Equal(t, []string{"Automotive", "Demographics", "Financial"}, cat.Categories())

		v, ok := cat.Get("VEH_OWN")
		require.True(t, ok)
		assert.Equal(t, "Owns a vehicle", v.Description)
		assert.True(t, cat.Has("AGE_25_34"))
		assert.False(t, cat.Has("NOPE"))
	})

	t.Run("indexed text is case normalized", func(t *testing.T) {
		cat, err := Load(ctx, sliceSource{variables: testVariables()})
		require.NoError(t, err)

		iv := cat.Indexed()[0]
		assert.Equal(t, "owns a vehicle automotive ownership", iv.Text)
		assert.True(t, iv.Tokens["vehicle"])
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := Load(ctx, nil)
		assert.ErrorIs(t, err, core.ErrCatalogLoad)
	})

	t.Run("source failure wrapped", func(t *testing.T) {
		_, err := Load(ctx, sliceSource{err: errors.New("disk gone")})
		assert.ErrorIs(t, err, core.ErrCatalogLoad)
	})

	t.Run("duplicate code", func(t *testing.T) {
		variables := testVariables()
		variables = append(variables, variables[0])
		_, err := Load(ctx, sliceSource{variables: variables})
		assert.ErrorIs(t, err, core.ErrCatalogLoad)
		assert.ErrorIs(t, err, core.ErrDuplicateCode)
	})

	t.Run("invalid record", func(t *testing.T) {
		variables := testVariables()
		variables[1].Description = ""
		_, err := Load(ctx, sliceSource{variables: variables})
		assert.ErrorIs(t, err, core.ErrCatalogLoad)
		assert.ErrorIs(t, err, core.ErrEmptyDescription)
	})

	t.Run("inline embeddings attached", func(t *testing.T) {
		variables := testVariables()
		variables[0].Embedding = []float32{0.1, 0.2}
		cat, err := Load(ctx, sliceSource{variables: variables})
		require.NoError(t, err)

		assert.True(t, cat.EmbeddingsReady())
		vec, ok := cat.Embedding("VEH_OWN")
		require.True(t, ok)
		assert.Equal(t, []float32{0.1, 0.2}, vec)
	})
}

func TestLoadEmbeddings(t *testing.T) {
	ctx := context.Background()

	source := sliceSource{
		variables: testVariables(),
		vectors: map[string][]float32{
			"VEH_OWN": {0.5, 0.5},
			"UNKNOWN": {0.9, 0.9},
		},
	}

	cat, err := Load(ctx, source)
	require.NoError(t, err)
	assert.False(t, cat.EmbeddingsReady())

	require.NoError(t, LoadEmbeddings(ctx, cat, source))
	assert.True(t, cat.EmbeddingsReady())

	_, ok := cat.Embedding("VEH_OWN")
	assert.True(t, ok)

	// Vectors for codes outside the catalog are dropped
	_, ok = cat.Embedding("UNKNOWN")
	assert.False(t, ok)
}

func TestCSVSource(t *testing.T) {
	ctx := context.Background()

	t.Run("parses rows with reordered header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.csv")
		content := "description,code,category,theme,type,context\n" +
			"Owns a vehicle,VEH_OWN,Automotive,Ownership,boolean,national\n" +
			"Age 25 to 34,AGE_25_34,Demographics,Age,boolean,national\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		variables, err := CSVSource{Path: path}.Variables(ctx)
		require.NoError(t, err)
		require.Len(t, variables, 2)
		assert.Equal(t, "VEH_OWN", variables[0].Code)
		assert.Equal(t, "Owns a vehicle", variables[0].Description)
		assert.Equal(t, "national", variables[1].Context)
	})

	t.Run("missing column", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("code,description\nA,B\n"), 0o644))

		_, err := CSVSource{Path: path}.Variables(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required column")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}.Variables(ctx)
		assert.Error(t, err)
	})
}

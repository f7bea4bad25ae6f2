package similarity

import (
	"fmt"
	"testing"

	"github.com/poiesic/cohort/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(code, description string, score float64) core.SearchResult {
	return core.SearchResult{
		Variable: core.Variable{Code: code, Description: description},
		Score:    score,
	}
}

func TestBasePattern(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips numeric qualifiers",
			in:   "Contact with friends 1-2 times per week",
			want: "contact with friends times per week",
		},
		{
			name: "same pattern different numbers",
			in:   "Contact with friends 3-4 times per week",
			want: "contact with friends times per week",
		},
		{
			name: "punctuation becomes separator",
			in:   "Income: $100,000+",
			want: "income",
		},
		{
			name: "collapses whitespace",
			in:   "  Age   25  to  34 ",
			want: "age to",
		},
		{
			name: "empty",
			in:   "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BasePattern(tt.in))
		})
	}
}

func TestCluster(t *testing.T) {
	t.Run("groups numeric variants", func(t *testing.T) {
		results := []core.SearchResult{
			result("FREQ_1", "Contact with friends 1-2 times per week", 0.9),
			result("FREQ_3", "Contact with friends 3-4 times per week", 0.8),
			result("FREQ_5", "Contact with friends 5-6 times per week", 0.7),
			result("VEH", "Owns a vehicle", 0.6),
		}

		groups := Cluster(results, DefaultThreshold)
		require.Len(t, groups, 2)

		assert.Len(t, groups[0].Members, 3)
		assert.Equal(t, "contact with friends times per week", groups[0].Key)
		assert.Len(t, groups[1].Members, 1)
	})

	t.Run("representatives ranked by score then brevity then code", func(t *testing.T) {
		results := []core.SearchResult{
			result("B", "Contact with friends 1-2 times per week", 0.8),
			result("A", "Contact with friends 10-12 times per week", 0.8),
			result("C", "Contact with friends 5-6 times per week", 0.9),
		}

		groups := Cluster(results, DefaultThreshold)
		require.Len(t, groups, 1)

		reps := groups[0].Representatives
		require.Len(t, reps, 3)
		assert.Equal(t, "C", reps[0].Variable.Code) // highest score
		assert.Equal(t, "B", reps[1].Variable.Code) // tie broken by shorter description
		assert.Equal(t, "A", reps[2].Variable.Code)
	})

	t.Run("empty descriptions are singletons", func(t *testing.T) {
		results := []core.SearchResult{
			result("X", "", 0.9),
			result("Y", "", 0.8),
		}

		groups := Cluster(results, DefaultThreshold)
		assert.Len(t, groups, 2)
	})
}

func TestFilter(t *testing.T) {
	t.Run("caps representatives per cluster", func(t *testing.T) {
		var results []core.SearchResult
		for i := 0; i < 50; i++ {
			code := fmt.Sprintf("FREQ_%02d", i)
			desc := fmt.Sprintf("Contact with friends %d-%d times per month", i, i+1)
			results = append(results, result(code, desc, 1.0-float64(i)*0.01))
		}

		filtered := Filter(results, DefaultThreshold, DefaultMaxPerGroup)
		assert.LessOrEqual(t, len(filtered), DefaultMaxPerGroup)

		// Highest-scored variant survives
		require.NotEmpty(t, filtered)
		assert.Equal(t, "FREQ_00", filtered[0].Variable.Code)
	})

	t.Run("preserves ranking order", func(t *testing.T) {
		results := []core.SearchResult{
			result("VEH", "Owns a vehicle", 0.95),
			result("FREQ_1", "Contact with friends 1-2 times per week", 0.9),
			result("INC", "Income over threshold", 0.85),
			result("FREQ_3", "Contact with friends 3-4 times per week", 0.8),
		}

		filtered := Filter(results, DefaultThreshold, 1)
		require.Len(t, filtered, 3)
		assert.Equal(t, "VEH", filtered[0].Variable.Code)
		assert.Equal(t, "FREQ_1", filtered[1].Variable.Code)
		assert.Equal(t, "INC", filtered[2].Variable.Code)
	})

	t.Run("zero settings take defaults", func(t *testing.T) {
		results := []core.SearchResult{
			result("FREQ_1", "Contact with friends 1-2 times per week", 0.9),
			result("FREQ_3", "Contact with friends 3-4 times per week", 0.8),
			result("FREQ_5", "Contact with friends 5-6 times per week", 0.7),
		}

		filtered := Filter(results, 0, 0)
		assert.Len(t, filtered, DefaultMaxPerGroup)
	})

	t.Run("different base patterns never merge", func(t *testing.T) {
		results := []core.SearchResult{
			result("A", "Rents a home", 0.9),
			result("B", "Owns a home", 0.8),
		}

		filtered := Filter(results, DefaultThreshold, 1)
		assert.Len(t, filtered, 2)
	})
}

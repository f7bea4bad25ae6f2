package segment

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/poiesic/cohort/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticPopulation builds n deterministic records over three numeric
// dimensions and one categorical dimension.
func syntheticPopulation(n int) ([]Record, []string) {
	rng := rand.New(rand.NewPCG(42, 7))
	regions := []string{"urban", "suburban", "rural"}

	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			"AGE":    20 + rng.Float64()*50,
			"INCOME": 30000 + rng.Float64()*120000,
			"SPEND":  rng.Float64() * 500,
			"REGION": regions[rng.IntN(len(regions))],
		}
	}
	return records, []string{"AGE", "INCOME", "SPEND", "REGION"}
}

func newTestSegmenter(t *testing.T, opts ...Option) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(opts...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestChooseK(t *testing.T) {
	s := newTestSegmenter(t)
	// Band [0.05, 0.10] implies between 10 and 20 clusters
	assert.Equal(t, 15, s.chooseK())

	narrow := newTestSegmenter(t, WithSizeBand(0.10, 0.125))
	assert.Equal(t, 9, narrow.chooseK())
}

func TestSegmentInsufficientData(t *testing.T) {
	s := newTestSegmenter(t)
	records, codes := syntheticPopulation(100) // k=15 needs at least 150

	_, err := s.Segment(context.Background(), records, codes)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestSegmentNoRecords(t *testing.T) {
	s := newTestSegmenter(t)
	_, err := s.Segment(context.Background(), nil, []string{"AGE"})
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestSegmentBalanced(t *testing.T) {
	s := newTestSegmenter(t)
	records, codes := syntheticPopulation(600)

	result, err := s.Segment(context.Background(), records, codes)
	require.NoError(t, err)

	assert.Equal(t, 600, result.Total)
	require.Len(t, result.Segments, 15)

	// Every record lands in exactly one segment
	seen := make(map[int]int)
	total := 0
	for _, seg := range result.Segments {
		assert.Equal(t, len(seg.Members), seg.Size)
		for _, member := range seg.Members {
			seen[member]++
		}
		total += seg.Size
	}
	assert.Equal(t, 600, total)
	for member, count := range seen {
		require.Equal(t, 1, count, "record %d assigned %d times", member, count)
	}

	// Sizes respect the band unless the repair pass warned
	warned := false
	for _, w := range result.Warnings {
		if w.Kind == core.WarningRebalanceTolerance {
			warned = true
		}
	}
	if !warned {
		minCount := int(math.Ceil(0.05 * 600))
		maxCount := int(math.Floor(0.10 * 600))
		for _, seg := range result.Segments {
			assert.GreaterOrEqual(t, seg.Size, minCount, "segment %d undersized", seg.ID)
			assert.LessOrEqual(t, seg.Size, maxCount, "segment %d oversized", seg.ID)
		}
	}
}

func TestSegmentDeterministic(t *testing.T) {
	records, codes := syntheticPopulation(400)
	ctx := context.Background()

	first, err := newTestSegmenter(t, WithK(10)).Segment(ctx, records, codes)
	require.NoError(t, err)
	second, err := newTestSegmenter(t, WithK(10)).Segment(ctx, records, codes)
	require.NoError(t, err)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different segmentations")
	}

	// A different seed is allowed to produce a different clustering
	reseeded, err := newTestSegmenter(t, WithK(10), WithSeed(99)).Segment(ctx, records, codes)
	require.NoError(t, err)
	assert.Len(t, reseeded.Segments, 10)
}

func TestSegmentTraitsAndNames(t *testing.T) {
	s := newTestSegmenter(t, WithK(10))
	records, codes := syntheticPopulation(400)

	result, err := s.Segment(context.Background(), records, codes)
	require.NoError(t, err)

	for _, seg := range result.Segments {
		require.Len(t, seg.Traits, 3)
		assert.NotEmpty(t, seg.Name)
		assert.Len(t, seg.Centroid, len(codes))

		// Traits are ordered by absolute deviation
		for i := 1; i < len(seg.Traits); i++ {
			assert.GreaterOrEqual(t,
				math.Abs(seg.Traits[i-1].Deviation),
				math.Abs(seg.Traits[i].Deviation))
		}
		for _, trait := range seg.Traits {
			assert.Contains(t, codes, trait.Code)
		}
	}

	// Names embed the segment number, so they are unique
	names := make(map[string]bool)
	for _, seg := range result.Segments {
		assert.False(t, names[seg.Name], "duplicate name %q", seg.Name)
		names[seg.Name] = true
	}
}

func TestSegmentCancelled(t *testing.T) {
	s := newTestSegmenter(t)
	records, codes := syntheticPopulation(600)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Segment(ctx, records, codes)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildMatrix(t *testing.T) {
	t.Run("standardizes numeric columns", func(t *testing.T) {
		records := []Record{
			{"AGE": 20.0},
			{"AGE": 30.0},
			{"AGE": 40.0},
		}
		m, err := buildMatrix(records, []string{"AGE"})
		require.NoError(t, err)

		var sum float64
		for row := 0; row < m.rows; row++ {
			sum += m.at(row, 0)
		}
		assert.InDelta(t, 0, sum, 1e-9)
		assert.Less(t, m.at(0, 0), 0.0)
		assert.Greater(t, m.at(2, 0), 0.0)
	})

	t.Run("label encodes categoricals deterministically", func(t *testing.T) {
		records := []Record{
			{"REGION": "urban"},
			{"REGION": "rural"},
			{"REGION": "urban"},
		}
		m, err := buildMatrix(records, []string{"REGION"})
		require.NoError(t, err)
		assert.Equal(t, m.at(0, 0), m.at(2, 0))
		assert.NotEqual(t, m.at(0, 0), m.at(1, 0))
	})

	t.Run("missing values impute to the mean", func(t *testing.T) {
		records := []Record{
			{"AGE": 20.0},
			{},
			{"AGE": 40.0},
		}
		m, err := buildMatrix(records, []string{"AGE"})
		require.NoError(t, err)
		assert.InDelta(t, 0, m.at(1, 0), 1e-9)
	})

	t.Run("constant column becomes zeros", func(t *testing.T) {
		records := []Record{{"X": 5.0}, {"X": 5.0}}
		m, err := buildMatrix(records, []string{"X"})
		require.NoError(t, err)
		assert.Equal(t, 0.0, m.at(0, 0))
		assert.Equal(t, 0.0, m.at(1, 0))
	})

	t.Run("mixed ints and bools encode", func(t *testing.T) {
		records := []Record{
			{"FLAG": true, "N": 1},
			{"FLAG": false, "N": int64(3)},
		}
		m, err := buildMatrix(records, []string{"FLAG", "N"})
		require.NoError(t, err)
		assert.Greater(t, m.at(0, 0), m.at(1, 0))
		assert.Less(t, m.at(0, 1), m.at(1, 1))
	})
}

func TestColumnMedianOutlierRobust(t *testing.T) {
	records := make([]Record, 0, 11)
	for i := 0; i < 10; i++ {
		records = append(records, Record{"V": float64(i)})
	}
	records = append(records, Record{"V": 1e9}) // extreme outlier

	m, err := buildMatrix(records, []string{"V"})
	require.NoError(t, err)

	rows := make([]int, m.rows)
	for i := range rows {
		rows[i] = i
	}
	median := columnMedian(m, rows, 0, make([]float64, 0, m.rows))

	// The median stays near the bulk of the data; the outlier dominates the
	// mean but not the median.
	bulk := make([]float64, 10)
	for i := 0; i < 10; i++ {
		bulk[i] = m.at(i, 0)
	}
	assert.Less(t, median, m.at(10, 0))
	assert.LessOrEqual(t, median, bulk[9])
}

func TestTraitLabel(t *testing.T) {
	assert.Equal(t, "High INCOME", traitLabel("INCOME", 1.2))
	assert.Equal(t, "Low INCOME", traitLabel("INCOME", -0.8))
	assert.Equal(t, "Typical INCOME", traitLabel("INCOME", 0.1))
}

func TestL1Distance(t *testing.T) {
	assert.Equal(t, 0.0, l1Distance([]float64{1, 2}, []float64{1, 2}))
	assert.Equal(t, 3.0, l1Distance([]float64{0, 0}, []float64{1, -2}))
}

func TestSegmentLargePopulationBalance(t *testing.T) {
	if testing.Short() {
		t.Skip("large population")
	}

	s := newTestSegmenter(t)
	records, codes := syntheticPopulation(1000)

	result, err := s.Segment(context.Background(), records, codes)
	require.NoError(t, err)
	require.Len(t, result.Segments, 15)

	warned := false
	for _, w := range result.Warnings {
		if w.Kind == core.WarningRebalanceTolerance {
			warned = true
		}
	}
	if !warned {
		for _, seg := range result.Segments {
			fraction := seg.Fraction(result.Total)
			assert.GreaterOrEqual(t, fraction, 0.05, "segment %d below band", seg.ID)
			assert.LessOrEqual(t, fraction, 0.10, "segment %d above band", seg.ID)
		}
	}
}

func ExampleSegmenter_Segment() {
	records, codes := syntheticPopulation(600)

	s, _ := NewSegmenter()
	defer s.Release()

	result, _ := s.Segment(context.Background(), records, codes)
	fmt.Println(len(result.Segments))
	// Output: 15
}

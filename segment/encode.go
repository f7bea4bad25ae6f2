package segment

import (
	"fmt"
	"math"
	"sort"

	"github.com/poiesic/cohort/core"
)

// Record is one population row: values keyed by variable code.
// Values may be numeric (int/float), bool, or string (categorical).
type Record map[string]any

// matrix holds the standardized, encoded population: rows x dims values
// in row-major order. Categorical dimensions are label-encoded before
// standardization; missing values are imputed with the dimension mean.
type matrix struct {
	rows  int
	dims  int
	codes []string
	data  []float64
}

func (m *matrix) at(row, dim int) float64 {
	return m.data[row*m.dims+dim]
}

func (m *matrix) rowSlice(row int) []float64 {
	return m.data[row*m.dims : (row+1)*m.dims]
}

// buildMatrix encodes and standardizes records over the confirmed
// variable codes. Every code becomes exactly one dimension, so none of
// the confirmed variables is dropped or duplicated downstream.
func buildMatrix(records []Record, codes []string) (*matrix, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", core.ErrInsufficientData)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("no variable codes given")
	}

	m := &matrix{
		rows:  len(records),
		dims:  len(codes),
		codes: codes,
		data:  make([]float64, len(records)*len(codes)),
	}

	column := make([]float64, m.rows)
	for d, code := range codes {
		if err := encodeColumn(records, code, column); err != nil {
			return nil, err
		}
		standardize(column)
		for row := 0; row < m.rows; row++ {
			m.data[row*m.dims+d] = column[row]
		}
	}

	return m, nil
}

// encodeColumn fills column with the numeric encoding of one variable.
// A column containing any string value is treated as categorical and
// label-encoded over the sorted distinct values. Missing values become
// NaN and are mean-imputed by standardize.
func encodeColumn(records []Record, code string, column []float64) error {
	categorical := false
	for _, rec := range records {
		if _, ok := rec[code].(string); ok {
			categorical = true
			break
		}
	}

	if categorical {
		distinct := make(map[string]bool)
		for _, rec := range records {
			if s, ok := rec[code].(string); ok {
				distinct[s] = true
			}
		}
		labels := make([]string, 0, len(distinct))
		for s := range distinct {
			labels = append(labels, s)
		}
		sort.Strings(labels)
		index := make(map[string]float64, len(labels))
		for i, s := range labels {
			index[s] = float64(i)
		}

		for row, rec := range records {
			if s, ok := rec[code].(string); ok {
				column[row] = index[s]
			} else {
				column[row] = math.NaN()
			}
		}
		return nil
	}

	for row, rec := range records {
		value, ok := numericValue(rec[code])
		if !ok {
			column[row] = math.NaN()
			continue
		}
		column[row] = value
	}
	return nil
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// standardize converts values to z-scores in place, imputing NaN with the
// column mean. A constant column becomes all zeros.
func standardize(column []float64) {
	var sum float64
	count := 0
	for _, v := range column {
		if !math.IsNaN(v) {
			sum += v
			count++
		}
	}
	if count == 0 {
		for i := range column {
			column[i] = 0
		}
		return
	}
	mean := sum / float64(count)

	var variance float64
	for _, v := range column {
		if !math.IsNaN(v) {
			variance += (v - mean) * (v - mean)
		}
	}
	std := math.Sqrt(variance / float64(count))

	for i, v := range column {
		if math.IsNaN(v) {
			column[i] = 0 // imputed to the mean, which is 0 after centering
			continue
		}
		if std == 0 {
			column[i] = 0
			continue
		}
		column[i] = (v - mean) / std
	}
}

// l1Distance is the Manhattan distance between a record row and a centroid.
func l1Distance(row, centroid []float64) float64 {
	var sum float64
	for i := range row {
		sum += math.Abs(row[i] - centroid[i])
	}
	return sum
}

// columnMedian computes the median of the given rows along one dimension.
func columnMedian(m *matrix, rows []int, dim int, scratch []float64) float64 {
	scratch = scratch[:0]
	for _, row := range rows {
		scratch = append(scratch, m.at(row, dim))
	}
	sort.Float64s(scratch)
	n := len(scratch)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return scratch[n/2]
	}
	return (scratch[n/2-1] + scratch[n/2]) / 2
}

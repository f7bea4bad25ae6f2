package segment

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/poiesic/cohort/core"
)

const (
	// traitCount is how many defining dimensions each segment reports.
	traitCount = 3

	// traitDeviationFloor is the standardized deviation below which a
	// dimension reads as "typical" rather than high or low.
	traitDeviationFloor = 0.25
)

// clusterTraits ranks the dimensions a cluster deviates on most. The
// population is standardized, so the global mean of every dimension is 0
// and the centroid value itself is the deviation.
func clusterTraits(m *matrix, centroid []float64) []core.Trait {
	order := make([]int, m.dims)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da, db := math.Abs(centroid[order[a]]), math.Abs(centroid[order[b]])
		if da != db {
			return da > db
		}
		return order[a] < order[b]
	})

	n := traitCount
	if n > m.dims {
		n = m.dims
	}
	traits := make([]core.Trait, 0, n)
	for _, dim := range order[:n] {
		traits = append(traits, core.Trait{
			Code:      m.codes[dim],
			Label:     traitLabel(m.codes[dim], centroid[dim]),
			Deviation: centroid[dim],
		})
	}
	return traits
}

func traitLabel(code string, deviation float64) string {
	switch {
	case deviation > traitDeviationFloor:
		return "High " + code
	case deviation < -traitDeviationFloor:
		return "Low " + code
	default:
		return "Typical " + code
	}
}

// segmentName composes a human-readable segment name from the top trait
// labels and a reach word derived from the segment's population share.
func segmentName(id int, traits []core.Trait, size, total int) string {
	labels := make([]string, 0, 2)
	for _, t := range traits {
		if !strings.HasPrefix(t.Label, "Typical") {
			labels = append(labels, t.Label)
		}
		if len(labels) == 2 {
			break
		}
	}
	if len(labels) == 0 {
		labels = append(labels, "Mixed Profile")
	}

	return fmt.Sprintf("%s %s %d", strings.Join(labels, ", "), reachWord(size, total), id+1)
}

// reachWord buckets the segment's population share.
func reachWord(size, total int) string {
	if total == 0 {
		return "Audience"
	}
	fraction := float64(size) / float64(total)
	switch {
	case fraction >= 0.09:
		return "Broad Audience"
	case fraction >= 0.07:
		return "Core Audience"
	default:
		return "Niche Audience"
	}
}

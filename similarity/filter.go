package similarity

import (
	"sort"
	"strings"

	"github.com/poiesic/cohort/core"
	"github.com/xrash/smetrics"
)

// Defaults for near-duplicate suppression.
const (
	DefaultThreshold   = 0.75
	DefaultMaxPerGroup = 2
)

// Jaro-Winkler parameters (standard values).
const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

// Filter removes near-duplicate results, keeping at most maxPerGroup
// representatives per similarity cluster. The relative ranking order of
// surviving results is preserved.
//
// Non-positive threshold or maxPerGroup fall back to the defaults.
func Filter(results []core.SearchResult, threshold float64, maxPerGroup int) []core.SearchResult {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if maxPerGroup < 1 {
		maxPerGroup = DefaultMaxPerGroup
	}

	keep := make(map[string]bool)
	for _, group := range Cluster(results, threshold) {
		for i, rep := range group.Representatives {
			if i >= maxPerGroup {
				break
			}
			keep[rep.Variable.Code] = true
		}
	}

	filtered := make([]core.SearchResult, 0, len(keep))
	for _, r := range results {
		if keep[r.Variable.Code] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Cluster groups results into similarity clusters. Results are first
// bucketed by normalized base pattern; within each bucket, pairs whose
// descriptions reach the Jaro-Winkler threshold are merged into connected
// components. Results with empty descriptions are always singletons.
//
// Each returned group's Representatives are ordered by score descending,
// then shorter description, then code.
func Cluster(results []core.SearchResult, threshold float64) []core.SimilarityGroup {
	buckets := make(map[string][]int)
	var order []string

	for i, r := range results {
		key := BasePattern(r.Variable.Description)
		if key == "" {
			// Missing/malformed description: private singleton bucket
			key = "\x00" + r.Variable.Code
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], i)
	}

	var groups []core.SimilarityGroup
	for _, key := range order {
		members := buckets[key]
		for _, component := range connectedComponents(results, members, threshold) {
			group := core.SimilarityGroup{Key: key}
			for _, i := range component {
				group.Members = append(group.Members, results[i])
			}
			group.Representatives = rankRepresentatives(group.Members)
			groups = append(groups, group)
		}
	}
	return groups
}

// BasePattern normalizes a description for duplicate grouping: lower-cased,
// numeric qualifiers and punctuation stripped, whitespace collapsed.
// The stripping is ASCII/English-only; non-ASCII descriptions mostly pass
// through unchanged and so degrade toward singleton treatment.
func BasePattern(description string) string {
	lowered := strings.ToLower(strings.TrimSpace(description))
	if lowered == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			// numeric qualifier, dropped
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// connectedComponents merges member indexes whose descriptions reach the
// similarity threshold, via union-find. Singleton buckets short-circuit.
func connectedComponents(results []core.SearchResult, members []int, threshold float64) [][]int {
	if len(members) == 1 {
		return [][]int{members}
	}

	parent := make([]int, len(members))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(members); i++ {
		di := strings.ToLower(results[members[i]].Variable.Description)
		for j := i + 1; j < len(members); j++ {
			dj := strings.ToLower(results[members[j]].Variable.Description)
			if smetrics.JaroWinkler(di, dj, jwBoostThreshold, jwPrefixSize) >= threshold {
				union(i, j)
			}
		}
	}

	componentOf := make(map[int][]int)
	var roots []int
	for i, m := range members {
		root := find(i)
		if _, ok := componentOf[root]; !ok {
			roots = append(roots, root)
		}
		componentOf[root] = append(componentOf[root], m)
	}

	components := make([][]int, 0, len(roots))
	for _, root := range roots {
		components = append(components, componentOf[root])
	}
	return components
}

// rankRepresentatives orders cluster members for representative selection:
// highest score first, ties broken by shorter description then code.
func rankRepresentatives(members []core.SearchResult) []core.SearchResult {
	ranked := make([]core.SearchResult, len(members))
	copy(ranked, members)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		li, lj := len(ranked[i].Variable.Description), len(ranked[j].Variable.Description)
		if li != lj {
			return li < lj
		}
		return ranked[i].Variable.Code < ranked[j].Variable.Code
	})
	return ranked
}

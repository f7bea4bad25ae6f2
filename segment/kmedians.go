package segment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/cohort/core"
)

const (
	// DefaultMinFraction and DefaultMaxFraction bound each segment's share
	// of the population.
	DefaultMinFraction = 0.05
	DefaultMaxFraction = 0.10

	// DefaultMaxIterations caps the assign/recompute loop.
	DefaultMaxIterations = 100

	// DefaultMinSegmentSize is the minimum viable members per segment;
	// populations smaller than k times this are rejected.
	DefaultMinSegmentSize = 10

	// DefaultSeed drives centroid seeding. Fixed so repeated runs over the
	// same population produce identical segments.
	DefaultSeed = 1
)

// Segmenter partitions encoded population records into balanced clusters.
// A Segmenter is immutable after construction and safe for concurrent use.
type Segmenter struct {
	minFraction    float64
	maxFraction    float64
	k              int
	maxIterations  int
	minSegmentSize int
	rebalanceCap   int
	seed           uint64
	pool           *ants.Pool
	logger         *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter) error

// WithSizeBand sets the allowed per-segment population fraction range.
func WithSizeBand(minFraction, maxFraction float64) Option {
	return func(s *Segmenter) error {
		if minFraction <= 0 || maxFraction >= 1 || minFraction >= maxFraction {
			return fmt.Errorf("invalid size band [%v, %v]", minFraction, maxFraction)
		}
		s.minFraction = minFraction
		s.maxFraction = maxFraction
		return nil
	}
}

// WithK overrides the derived cluster count. Zero restores derivation
// from the size band.
func WithK(k int) Option {
	return func(s *Segmenter) error {
		if k < 0 {
			return fmt.Errorf("k must be >= 0, got %d", k)
		}
		s.k = k
		return nil
	}
}

// WithMaxIterations caps the assignment loop.
func WithMaxIterations(n int) Option {
	return func(s *Segmenter) error {
		if n < 1 {
			return fmt.Errorf("max iterations must be >= 1, got %d", n)
		}
		s.maxIterations = n
		return nil
	}
}

// WithRebalanceCap bounds the member moves the balance repair pass may
// perform. Zero restores the default of twice the population size, which
// is always enough to reach a feasible band.
func WithRebalanceCap(n int) Option {
	return func(s *Segmenter) error {
		if n < 0 {
			return fmt.Errorf("rebalance cap must be >= 0, got %d", n)
		}
		s.rebalanceCap = n
		return nil
	}
}

// WithSeed sets the centroid seeding source.
func WithSeed(seed uint64) Option {
	return func(s *Segmenter) error {
		s.seed = seed
		return nil
	}
}

// WithPoolSize sets the worker pool size for parallel assignment.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Segmenter) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Segmenter) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSegmenter creates a Segmenter with the given options.
func NewSegmenter(opts ...Option) (*Segmenter, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Segmenter{
		minFraction:    DefaultMinFraction,
		maxFraction:    DefaultMaxFraction,
		maxIterations:  DefaultMaxIterations,
		minSegmentSize: DefaultMinSegmentSize,
		seed:           DefaultSeed,
		pool:           pool,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}

	return s, nil
}

// Release releases the assignment worker pool.
// The segmenter should not be used after calling Release.
func (s *Segmenter) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Result is a complete segmentation of a population.
type Result struct {
	Segments []core.Segment
	Total    int
	Warnings []core.Warning
}

// Segment clusters the records over the given variable codes.
// Every record lands in exactly one segment, every segment's size lies
// inside the configured band when the repair pass completes within its
// move budget, and repeated calls over the same inputs return identical
// results.
func (s *Segmenter) Segment(ctx context.Context, records []Record, codes []string) (*Result, error) {
	m, err := buildMatrix(records, codes)
	if err != nil {
		return nil, err
	}

	k := s.k
	if k == 0 {
		k = s.chooseK()
	}
	if m.rows < k*s.minSegmentSize {
		return nil, fmt.Errorf("%w: %d records, need at least %d for %d segments",
			core.ErrInsufficientData, m.rows, k*s.minSegmentSize, k)
	}

	s.logger.Debug("segmenting population", "records", m.rows, "dims", m.dims, "k", k)

	centroids := s.seedCentroids(m, k)
	assignment := make([]int, m.rows)
	for i := range assignment {
		assignment[i] = -1
	}

	var warnings []core.Warning

	converged := false
	for iter := 0; iter < s.maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := s.assign(m, centroids, assignment)
		s.recomputeCentroids(m, centroids, assignment)
		if changed == 0 {
			converged = true
			s.logger.Debug("converged", "iterations", iter+1)
			break
		}
	}
	if !converged {
		warnings = append(warnings, core.NewWarning(core.WarningConvergence,
			fmt.Sprintf("stopped after %d iterations without full convergence", s.maxIterations)))
	}

	if !s.rebalance(m, centroids, assignment) {
		warnings = append(warnings, core.NewWarning(core.WarningRebalanceTolerance,
			"segment sizes left outside the target band after the rebalance move budget"))
	}
	s.recomputeCentroids(m, centroids, assignment)

	segments := s.buildSegments(m, centroids, assignment, k)
	return &Result{Segments: segments, Total: m.rows, Warnings: warnings}, nil
}

// chooseK derives the cluster count as the midpoint of the counts implied
// by the size band: ceil(1/maxFraction) clusters at the largest allowed
// size, floor(1/minFraction) at the smallest.
func (s *Segmenter) chooseK() int {
	kMin := int(math.Ceil(1 / s.maxFraction))
	kMax := int(math.Floor(1 / s.minFraction))
	if kMax < kMin {
		kMax = kMin
	}
	return (kMin + kMax) / 2
}

// seedCentroids picks k initial centroids by furthest-point (maximin)
// traversal: a seeded random first pick, then repeatedly the record
// furthest from its nearest already-chosen centroid. Ties break to the
// lower record index.
func (s *Segmenter) seedCentroids(m *matrix, k int) [][]float64 {
	rng := rand.New(rand.NewPCG(s.seed, s.seed))

	chosen := make([]int, 0, k)
	chosen = append(chosen, rng.IntN(m.rows))

	nearest := make([]float64, m.rows)
	for row := 0; row < m.rows; row++ {
		nearest[row] = l1Distance(m.rowSlice(row), m.rowSlice(chosen[0]))
	}

	for len(chosen) < k {
		best := 0
		for row := 1; row < m.rows; row++ {
			if nearest[row] > nearest[best] {
				best = row
			}
		}
		chosen = append(chosen, best)
		for row := 0; row < m.rows; row++ {
			if d := l1Distance(m.rowSlice(row), m.rowSlice(best)); d < nearest[row] {
				nearest[row] = d
			}
		}
	}

	centroids := make([][]float64, k)
	for i, row := range chosen {
		centroids[i] = make([]float64, m.dims)
		copy(centroids[i], m.rowSlice(row))
	}
	return centroids
}

// assign moves every record to its nearest centroid (ties to the lower
// cluster index) and returns the number of records that changed cluster.
func (s *Segmenter) assign(m *matrix, centroids [][]float64, assignment []int) int {
	next := make([]int, m.rows)
	s.parallelFor(m.rows, func(row int) {
		next[row] = nearestCentroid(m.rowSlice(row), centroids)
	})

	changed := 0
	for row := range next {
		if next[row] != assignment[row] {
			changed++
			assignment[row] = next[row]
		}
	}
	return changed
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := l1Distance(row, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := l1Distance(row, centroids[c]); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// recomputeCentroids sets each centroid to the per-dimension median of its
// members. An emptied cluster is reseeded with the record furthest from
// its assigned centroid, which keeps k stable across iterations.
func (s *Segmenter) recomputeCentroids(m *matrix, centroids [][]float64, assignment []int) {
	members := clusterMembers(assignment, len(centroids))

	for c := range centroids {
		if len(members[c]) == 0 {
			row := s.furthestAssigned(m, centroids, assignment)
			assignment[row] = c
			copy(centroids[c], m.rowSlice(row))
			continue
		}
		scratch := make([]float64, 0, len(members[c]))
		for dim := 0; dim < m.dims; dim++ {
			centroids[c][dim] = columnMedian(m, members[c], dim, scratch)
		}
	}
}

// furthestAssigned finds the record furthest from its current centroid,
// breaking ties to the lower index.
func (s *Segmenter) furthestAssigned(m *matrix, centroids [][]float64, assignment []int) int {
	best := 0
	bestDist := -1.0
	for row := 0; row < m.rows; row++ {
		d := l1Distance(m.rowSlice(row), centroids[assignment[row]])
		if d > bestDist {
			best = row
			bestDist = d
		}
	}
	return best
}

// rebalance repairs the size band by repeatedly moving the member of the
// most oversized (or least undersized-adjacent) cluster that is furthest
// from its own centroid into the nearest cluster that can take it.
// Returns true when all clusters end inside the band.
func (s *Segmenter) rebalance(m *matrix, centroids [][]float64, assignment []int) bool {
	k := len(centroids)
	minCount := int(math.Ceil(s.minFraction * float64(m.rows)))
	maxCount := int(math.Floor(s.maxFraction * float64(m.rows)))
	// A band the population cannot satisfy exactly is widened to feasible
	// bounds rather than looping the move budget away.
	if minCount*k > m.rows {
		minCount = m.rows / k
	}
	if maxCount*k < m.rows {
		maxCount = (m.rows + k - 1) / k
	}

	sizes := make([]int, k)
	for _, c := range assignment {
		sizes[c]++
	}

	// Every move strictly shrinks an excess or a deficit, so twice the
	// population always suffices for a feasible band.
	budget := s.rebalanceCap
	if budget <= 0 {
		budget = 2 * m.rows
	}

	for moves := 0; moves < budget; moves++ {
		source := pickSource(sizes, minCount, maxCount)
		if source == -1 {
			return true
		}

		row := furthestMember(m, centroids[source], assignment, source)
		if row == -1 {
			break
		}
		target := bestTarget(m.rowSlice(row), centroids, sizes, source, minCount, maxCount)
		if target == -1 {
			break
		}

		assignment[row] = target
		sizes[source]--
		sizes[target]++
	}

	for c := range sizes {
		if sizes[c] < minCount || sizes[c] > maxCount {
			return false
		}
	}
	return true
}

// pickSource selects the cluster a member should leave: the largest
// oversized cluster, or when none is oversized but some cluster is still
// starved, the largest donor above the minimum. Ties break to the lower
// cluster index. Returns -1 when every cluster is inside the band.
func pickSource(sizes []int, minCount, maxCount int) int {
	source := -1
	for c, size := range sizes {
		if size > maxCount && (source == -1 || size > sizes[source]) {
			source = c
		}
	}
	if source != -1 {
		return source
	}

	starved := false
	for _, size := range sizes {
		if size < minCount {
			starved = true
			break
		}
	}
	if !starved {
		return -1
	}
	for c, size := range sizes {
		if size > minCount && (source == -1 || size > sizes[source]) {
			source = c
		}
	}
	return source
}

// furthestMember finds the member of cluster c furthest from its centroid,
// breaking ties to the lower record index. Returns -1 for an empty cluster.
func furthestMember(m *matrix, centroid []float64, assignment []int, c int) int {
	best := -1
	bestDist := -1.0
	for row := 0; row < m.rows; row++ {
		if assignment[row] != c {
			continue
		}
		if d := l1Distance(m.rowSlice(row), centroid); d > bestDist {
			best = row
			bestDist = d
		}
	}
	return best
}

// bestTarget picks the receiving cluster for a moved record: the nearest
// undersized cluster when one exists, otherwise the nearest cluster with
// room below the maximum. Ties break to the lower cluster index.
func bestTarget(row []float64, centroids [][]float64, sizes []int, source, minCount, maxCount int) int {
	target := -1
	bestDist := math.Inf(1)
	for c := range centroids {
		if c == source || sizes[c] >= minCount {
			continue
		}
		if d := l1Distance(row, centroids[c]); d < bestDist {
			target = c
			bestDist = d
		}
	}
	if target != -1 {
		return target
	}

	for c := range centroids {
		if c == source || sizes[c] >= maxCount {
			continue
		}
		if d := l1Distance(row, centroids[c]); d < bestDist {
			target = c
			bestDist = d
		}
	}
	return target
}

// buildSegments materializes the final clusters into named segments with
// their traits, ordered by cluster index.
func (s *Segmenter) buildSegments(m *matrix, centroids [][]float64, assignment []int, k int) []core.Segment {
	members := clusterMembers(assignment, k)

	segments := make([]core.Segment, k)
	for c := 0; c < k; c++ {
		traits := clusterTraits(m, centroids[c])
		segments[c] = core.Segment{
			ID:       c,
			Name:     segmentName(c, traits, len(members[c]), m.rows),
			Members:  members[c],
			Size:     len(members[c]),
			Traits:   traits,
			Centroid: centroids[c],
		}
	}
	return segments
}

func clusterMembers(assignment []int, k int) [][]int {
	members := make([][]int, k)
	for row, c := range assignment {
		members[c] = append(members[c], row)
	}
	for c := range members {
		sort.Ints(members[c])
	}
	return members
}

// parallelFor runs fn for each index in [0, n) across the worker pool.
// Falls back to sequential execution for small inputs.
func (s *Segmenter) parallelFor(n int, fn func(i int)) {
	const chunkSize = 1024

	if n <= chunkSize {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		lo, hi := start, end
		if err := s.pool.Submit(func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}); err != nil {
			// Pool unavailable (released); do the chunk inline
			for i := lo; i < hi; i++ {
				fn(i)
			}
			wg.Done()
		}
	}
	wg.Wait()
}

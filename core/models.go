package core

import (
	"encoding/binary"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Variable is a single demographic or behavioral catalog attribute.
// Variables are immutable once loaded into a catalog snapshot.
type Variable struct {
	Code        string
	Description string
	Category    string
	Theme       string
	Type        string
	Context     string
	Embedding   []float32 // Optional; attached asynchronously after load
}

// NumericRange is a normalized numeric constraint extracted from a query,
// such as an age band, an income threshold, or a percentage.
// An open upper bound is represented by Max = +Inf.
type NumericRange struct {
	Min  float64
	Max  float64
	Unit string
}

// Overlaps reports whether two ranges share any portion of their span.
func (r NumericRange) Overlaps(other NumericRange) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// QueryContext is the parsed form of a raw audience description.
// It is created per request and never stored.
type QueryContext struct {
	Raw      string
	Concepts []string
	Ranges   []NumericRange
	Domain   string
}

// IsEmpty reports whether parsing extracted nothing usable from the query.
func (q QueryContext) IsEmpty() bool {
	return len(q.Concepts) == 0 && len(q.Ranges) == 0
}

// MatchMethod identifies a scoring method that contributed to a search result.
type MatchMethod string

const (
	// MatchKeyword indicates lexical matching over description/category/theme.
	MatchKeyword MatchMethod = "keyword"
	// MatchSemantic indicates embedding cosine similarity.
	MatchSemantic MatchMethod = "semantic"
	// MatchFallback indicates a category-spread fallback for degenerate queries.
	MatchFallback MatchMethod = "fallback"
)

// SearchResult is a scored catalog variable produced by the hybrid engine.
type SearchResult struct {
	Variable    Variable
	Score       float64 // Combined score in [0,1]
	Methods     []MatchMethod
	Explanation string
}

// SimilarityGroup is a cluster of near-duplicate search results sharing a
// normalized base pattern. Request-scoped, produced by the similarity filter.
type SimilarityGroup struct {
	Key             string
	Members         []SearchResult
	Representatives []SearchResult
}

// Trait describes a dimension on which a segment deviates from the
// overall population, in standardized units.
type Trait struct {
	Code      string
	Label     string
	Deviation float64
}

// Segment is one balanced population cluster produced by the
// segmentation engine. Members holds record indices into the input
// population; Centroid holds the per-dimension median in standardized space.
type Segment struct {
	ID       int
	Name     string
	Members  []int
	Size     int
	Traits   []Trait
	Centroid []float64
}

// Fraction returns the segment's share of a population of size total.
func (s Segment) Fraction(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(s.Size) / float64(total)
}

// AudienceSession ties a query to its confirmed variables and resulting
// segments. Session lifecycle is owned by the calling layer; the core only
// produces these values.
type AudienceSession struct {
	ID            ID
	Query         string
	VariableCodes []string
	Segments      []Segment
}

// NewAudienceSession builds a session value with a deterministic ID derived
// from the query and the confirmed variable codes.
func NewAudienceSession(query string, codes []string, segments []Segment) AudienceSession {
	return AudienceSession{
		ID:            IDFromContent(query + "|" + strings.Join(codes, ",")),
		Query:         query,
		VariableCodes: codes,
		Segments:      segments,
	}
}

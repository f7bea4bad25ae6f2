package catalog

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/poiesic/cohort/core"
	"github.com/poiesic/cohort/query"
)

// IndexedVariable is a catalog record together with its case-normalized
// matching material, precomputed at load time.
type IndexedVariable struct {
	Variable core.Variable

	// Text is the lower-cased concatenation of description, category and
	// theme, used for exact-phrase matching.
	Text string

	// Tokens is the token set of Text.
	Tokens map[string]bool

	// Ranges holds numeric ranges found in the description, used for
	// numeric-overlap boosting.
	Ranges []core.NumericRange
}

// Catalog is an immutable snapshot of variable records with
// case-normalized indexes. Safe for concurrent use.
type Catalog struct {
	indexed    []IndexedVariable
	byCode     map[string]int
	categories []string
	byCategory map[string][]int

	embeddings atomic.Pointer[map[string][]float32]
}

func newCatalog(variables []*core.Variable) *Catalog {
	c := &Catalog{
		indexed:    make([]IndexedVariable, 0, len(variables)),
		byCode:     make(map[string]int, len(variables)),
		byCategory: make(map[string][]int),
	}

	for _, v := range variables {
		text := strings.ToLower(v.Description + " " + v.Category + " " + v.Theme)
		tokens := make(map[string]bool)
		for _, token := range query.Tokenize(text) {
			tokens[token] = true
		}

		i := len(c.indexed)
		c.indexed = append(c.indexed, IndexedVariable{
			Variable: *v,
			Text:     text,
			Tokens:   tokens,
			Ranges:   query.ExtractRanges(v.Description),
		})
		c.byCode[v.Code] = i
		c.byCategory[v.Category] = append(c.byCategory[v.Category], i)
	}

	c.categories = make([]string, 0, len(c.byCategory))
	for category := range c.byCategory {
		c.categories = append(c.categories, category)
	}
	sort.Strings(c.categories)

	empty := map[string][]float32{}
	c.embeddings.Store(&empty)

	return c
}

// Len returns the number of catalog variables.
func (c *Catalog) Len() int {
	return len(c.indexed)
}

// Indexed returns all records with their precomputed matching material.
// The returned slice is shared and must be treated as read-only.
func (c *Catalog) Indexed() []IndexedVariable {
	return c.indexed
}

// All returns every catalog variable in load order.
func (c *Catalog) All() []core.Variable {
	out := make([]core.Variable, len(c.indexed))
	for i := range c.indexed {
		out[i] = c.indexed[i].Variable
	}
	return out
}

// Get retrieves a variable by code.
func (c *Catalog) Get(code string) (core.Variable, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return core.Variable{}, false
	}
	return c.indexed[i].Variable, true
}

// Has reports whether a variable code exists in the catalog.
func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Categories returns the distinct categories in sorted order.
func (c *Catalog) Categories() []string {
	return c.categories
}

// CategoryMembers returns the indexes of all variables in a category.
func (c *Catalog) CategoryMembers(category string) []int {
	return c.byCategory[category]
}

// AttachEmbeddings atomically swaps in embedding vectors keyed by variable
// code. Vectors for unknown codes are ignored. May be called at most once
// per load; callers typically invoke it from a background loader.
func (c *Catalog) AttachEmbeddings(vectors map[string][]float32) {
	kept := make(map[string][]float32, len(vectors))
	for code, vector := range vectors {
		if _, ok := c.byCode[code]; ok && len(vector) > 0 {
			kept[code] = vector
		}
	}
	c.embeddings.Store(&kept)
}

// Embedding returns the embedding vector for a code, if one is attached.
func (c *Catalog) Embedding(code string) ([]float32, bool) {
	vectors := *c.embeddings.Load()
	vector, ok := vectors[code]
	return vector, ok
}

// EmbeddingsReady reports whether any embedding vectors are attached.
func (c *Catalog) EmbeddingsReady() bool {
	return len(*c.embeddings.Load()) > 0
}

package query

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/cohort/core"
)

// Parser turns raw audience descriptions into QueryContext values.
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	config *DomainConfig
	logger *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewParser creates a parser over the given domain tables.
// A nil config falls back to the built-in defaults.
func NewParser(config *DomainConfig, opts ...ParserOption) *Parser {
	if config == nil {
		config = DefaultDomainConfig()
	}
	p := &Parser{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the parser's domain configuration.
func (p *Parser) Config() *DomainConfig {
	return p.config
}

// Parse extracts concepts, numeric ranges and an inferred domain from text.
// It never fails: unknown or empty input yields an empty-concept
// QueryContext.
func (p *Parser) Parse(text string) core.QueryContext {
	qc := core.QueryContext{Raw: text}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return qc
	}

	tokens := Tokenize(trimmed)
	lowered := strings.ToLower(trimmed)

	qc.Ranges = ExtractRanges(trimmed)
	qc.Concepts = p.extractConcepts(tokens, lowered)
	qc.Domain = p.inferDomain(tokens, lowered)

	p.logger.Debug("parsed query",
		"concepts", len(qc.Concepts),
		"ranges", len(qc.Ranges),
		"domain", qc.Domain)

	return qc
}

// extractConcepts collects query tokens plus canonical concepts triggered
// through the per-domain synonym tables, deduplicated in first-seen order.
func (p *Parser) extractConcepts(tokens []string, lowered string) []string {
	seen := make(map[string]bool)
	var concepts []string

	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			concepts = append(concepts, c)
		}
	}

	for _, token := range tokens {
		add(token)
	}

	tokenSet := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		tokenSet[token] = true
	}

	for _, d := range p.config.domains {
		canonicals := make([]string, 0, len(d.Synonyms))
		for canonical := range d.Synonyms {
			canonicals = append(canonicals, canonical)
		}
		// map iteration order is random; concept order must be stable
		sort.Strings(canonicals)

		for _, canonical := range canonicals {
			triggers := d.Synonyms[canonical]
			if seen[canonical] {
				continue
			}
			for _, trigger := range triggers {
				matched := false
				if strings.ContainsRune(trigger, ' ') {
					matched = strings.Contains(lowered, trigger)
				} else {
					matched = tokenSet[trigger]
				}
				if matched {
					add(canonical)
					break
				}
			}
		}
	}

	return concepts
}

// inferDomain picks the domain with the most matched priority terms.
// Ties are broken by the fixed domain rank order; no matches means no
// domain.
func (p *Parser) inferDomain(tokens []string, lowered string) string {
	tokenSet := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		tokenSet[token] = true
	}

	best := ""
	bestCount := 0
	for _, d := range p.config.domains {
		count := 0
		for _, term := range d.PriorityTerms {
			if strings.ContainsRune(term, ' ') {
				if strings.Contains(lowered, term) {
					count++
				}
			} else if tokenSet[term] {
				count++
			}
		}
		// domains iterate in rank order, so strict > keeps the lower rank on ties
		if count > bestCount {
			best = d.Name
			bestCount = count
		}
	}

	return best
}

// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package query

import (
	"errors"
	"sort"
	"strings"
)

// Domain describes one topical grouping used to bias relevance scoring.
type Domain struct {
	// Name identifies the domain, e.g. "financial".
	Name string

	// Rank is the fixed priority order used to break inference ties.
	// Lower rank wins.
	Rank int

	// Boost is the relevance multiplier applied to variables matching the
	// inferred domain. Must lie in [1.3, 2.0].
	Boost float64

	// PriorityTerms are tokens whose presence in a query votes for this
	// domain during inference.
	PriorityTerms []string

	// Synonyms maps a canonical concept to trigger tokens or phrases that
	// expand to it, e.g. "vehicle ownership" -> {"car", "suv"}.
	Synonyms map[string][]string
}

// DomainConfig is the immutable set of domain tables injected at
// construction. It is never mutated after NewDomainConfig returns.
type DomainConfig struct {
	domains []Domain
	byName  map[string]int
}

// ErrInvalidDomainConfig indicates a malformed domain table.
var ErrInvalidDomainConfig = errors.New("invalid domain config")

// NewDomainConfig builds a DomainConfig from domain tables.
// Domains are ordered by Rank; names must be unique and boosts must lie
// in [1.3, 2.0].
func NewDomainConfig(domains []Domain) (*DomainConfig, error) {
	sorted := make([]Domain, len(domains))
	copy(sorted, domains)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	byName := make(map[string]int, len(sorted))
	for i, d := range sorted {
		if d.Name == "" {
			return nil, errors.Join(ErrInvalidDomainConfig, errors.New("domain name empty"))
		}
		if _, dup := byName[d.Name]; dup {
			return nil, errors.Join(ErrInvalidDomainConfig, errors.New("duplicate domain "+d.Name))
		}
		if d.Boost < 1.3 || d.Boost > 2.0 {
			return nil, errors.Join(ErrInvalidDomainConfig, errors.New("boost out of range for "+d.Name))
		}
		byName[d.Name] = i
	}

	return &DomainConfig{domains: sorted, byName: byName}, nil
}

// DefaultDomainConfig returns the built-in domain tables covering
// automotive, demographic, financial, health and immigration audiences.
func DefaultDomainConfig() *DomainConfig {
	cfg, err := NewDomainConfig([]Domain{
		{
			Name:  "automotive",
			Rank:  1,
			Boost: 1.5,
			PriorityTerms: []string{
				"car", "cars", "vehicle", "vehicles", "auto", "automobile",
				"truck", "suv", "motorcycle", "driver", "drivers", "dealership",
			},
			Synonyms: map[string][]string{
				"vehicle ownership": {"car", "cars", "vehicle", "auto", "automobile", "suv", "truck"},
				"commuting":         {"commute", "commuter", "driving"},
			},
		},
		{
			Name:  "demographic",
			Rank:  2,
			Boost: 1.3,
			PriorityTerms: []string{
				"age", "aged", "gender", "male", "female", "household",
				"family", "families", "children", "married", "single",
				"education", "urban", "rural",
			},
			Synonyms: map[string][]string{
				"age":       {"aged", "young", "younger", "older", "elderly", "seniors"},
				"household": {"family", "families", "households"},
				"education": {"educated", "degree", "university", "college"},
			},
		},
		{
			Name:  "financial",
			Rank:  3,
			Boost: 1.6,
			PriorityTerms: []string{
				"income", "earnings", "salary", "investment", "investments",
				"savings", "banking", "credit", "loan", "mortgage", "wealth",
				"affluent",
			},
			Synonyms: map[string][]string{
				"income":     {"earnings", "salary", "earners", "affluent", "wealthy"},
				"investment": {"investments", "investors", "portfolio"},
				"credit":     {"loan", "loans", "mortgage", "debt"},
			},
		},
		{
			Name:  "health",
			Rank:  4,
			Boost: 1.7,
			PriorityTerms: []string{
				"health", "healthy", "medical", "fitness", "wellness",
				"exercise", "smoking", "smokers", "diet", "chronic",
			},
			Synonyms: map[string][]string{
				"health":  {"healthy", "wellness", "medical"},
				"fitness": {"exercise", "active", "gym"},
				"smoking": {"smoker", "smokers", "tobacco"},
			},
		},
		{
			Name:  "immigration",
			Rank:  5,
			Boost: 2.0,
			PriorityTerms: []string{
				"immigrant", "immigrants", "immigration", "migrant", "migrants",
				"visa", "citizenship", "birthplace", "arrival", "refugee",
			},
			Synonyms: map[string][]string{
				"immigration": {"immigrant", "immigrants", "migrant", "migrants", "newcomer", "newcomers"},
				"citizenship": {"citizen", "citizens", "naturalized", "visa"},
				"birthplace":  {"born", "overseas", "abroad"},
			},
		},
	})
	if err != nil {
		// Built-in tables are validated by tests; reaching here is a bug.
		panic(err)
	}
	return cfg
}

// Domains returns the configured domains in rank order.
func (c *DomainConfig) Domains() []Domain {
	out := make([]Domain, len(c.domains))
	copy(out, c.domains)
	return out
}

// Boost returns the relevance multiplier for a domain, or 1.0 when the
// domain is unknown or empty.
func (c *DomainConfig) Boost(name string) float64 {
	if i, ok := c.byName[name]; ok {
		return c.domains[i].Boost
	}
	return 1.0
}

// MatchesDomain reports whether any of the domain's priority terms appear
// in the given text. Used by the search engine to decide whether a catalog
// variable belongs to the inferred domain.
func (c *DomainConfig) MatchesDomain(name, text string) bool {
	i, ok := c.byName[name]
	if !ok {
		return false
	}
	lowered := strings.ToLower(text)
	for _, term := range c.domains[i].PriorityTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

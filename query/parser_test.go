package query

import (
	"math"
	"reflect"
	"testing"

	"github.com/poiesic/cohort/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and strips punctuation",
			text: "Young, affluent drivers!",
			want: []string{"young", "affluent", "drivers"},
		},
		{
			name: "removes stop words",
			text: "people who commute to the city",
			want: []string{"people", "commute", "city"},
		},
		{
			name: "stop words only",
			text: "the of and with",
			want: []string{},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestContainsAllTokens(t *testing.T) {
	tests := []struct {
		name     string
		document string
		query    string
		want     bool
	}{
		{
			name:     "all tokens scattered",
			document: "regular gym exercise health fitness",
			query:    "gym regular",
			want:     true,
		},
		{
			name:     "stop words ignored",
			document: "owns a vehicle automotive ownership",
			query:    "the vehicle",
			want:     true,
		},
		{
			name:     "missing token",
			document: "owns a vehicle",
			query:    "vehicle leasing",
			want:     false,
		},
		{
			name:     "empty query",
			document: "owns a vehicle",
			query:    "",
			want:     false,
		},
		{
			name:     "stop words only query",
			document: "owns a vehicle",
			query:    "the of and",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsAllTokens(tt.document, tt.query))
		})
	}
}

func TestExtractRanges(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []core.NumericRange
	}{
		{
			name: "age band with dash",
			text: "adults 25-34 in cities",
			want: []core.NumericRange{{Min: 25, Max: 34, Unit: UnitYears}},
		},
		{
			name: "age band with to",
			text: "aged 35 to 44",
			want: []core.NumericRange{{Min: 35, Max: 44, Unit: UnitYears}},
		},
		{
			name: "open income threshold",
			text: "households earning $100k+",
			want: []core.NumericRange{{Min: 100000, Max: math.Inf(1), Unit: UnitDollars}},
		},
		{
			name: "exact income with separators",
			text: "income of $50,000",
			want: []core.NumericRange{{Min: 50000, Max: 50000, Unit: UnitDollars}},
		},
		{
			name: "millions suffix",
			text: "net worth $1m",
			want: []core.NumericRange{{Min: 1000000, Max: 1000000, Unit: UnitDollars}},
		},
		{
			name: "percentage",
			text: "areas with 35% renters",
			want: []core.NumericRange{{Min: 35, Max: 35, Unit: UnitPercent}},
		},
		{
			name: "calendar year",
			text: "arrived after 2015",
			want: []core.NumericRange{{Min: 2015, Max: 2015, Unit: UnitYear}},
		},
		{
			name: "inverted band dropped",
			text: "range 90-10",
			want: nil,
		},
		{
			name: "no numbers",
			text: "healthy active families",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRanges(tt.text))
		})
	}
}

func TestNewDomainConfig(t *testing.T) {
	t.Run("rejects out-of-range boost", func(t *testing.T) {
		_, err := NewDomainConfig([]Domain{{Name: "x", Rank: 1, Boost: 1.1}})
		assert.ErrorIs(t, err, ErrInvalidDomainConfig)

		_, err = NewDomainConfig([]Domain{{Name: "x", Rank: 1, Boost: 2.5}})
		assert.ErrorIs(t, err, ErrInvalidDomainConfig)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewDomainConfig([]Domain{
			{Name: "x", Rank: 1, Boost: 1.5},
			{Name: "x", Rank: 2, Boost: 1.5},
		})
		assert.ErrorIs(t, err, ErrInvalidDomainConfig)
	})

	t.Run("orders by rank", func(t *testing.T) {
		cfg, err := NewDomainConfig([]Domain{
			{Name: "b", Rank: 2, Boost: 1.5},
			{Name: "a", Rank: 1, Boost: 1.3},
		})
		require.NoError(t, err)
		domains := cfg.Domains()
		require.Len(t, domains, 2)
		assert.Equal(t, "a", domains[0].Name)
		assert.Equal(t, "b", domains[1].Name)
	})
}

func TestDomainConfigBoost(t *testing.T) {
	cfg := DefaultDomainConfig()

	assert.Equal(t, 2.0, cfg.Boost("immigration"))
	assert.Equal(t, 1.3, cfg.Boost("demographic"))
	assert.Equal(t, 1.0, cfg.Boost("unknown"))
	assert.Equal(t, 1.0, cfg.Boost(""))
}

func TestParse(t *testing.T) {
	parser := NewParser(nil)

	t.Run("empty query", func(t *testing.T) {
		qc := parser.Parse("   ")
		assert.True(t, qc.IsEmpty())
		assert.Empty(t, qc.Domain)
	})

	t.Run("raw text preserved", func(t *testing.T) {
		qc := parser.Parse("Young Drivers")
		assert.Equal(t, "Young Drivers", qc.Raw)
	})

	t.Run("synonym expansion adds canonical concepts", func(t *testing.T) {
		qc := parser.Parse("wealthy suv owners")
		assert.Contains(t, qc.Concepts, "suv")
		assert.Contains(t, qc.Concepts, "income")            // wealthy -> income
		assert.Contains(t, qc.Concepts, "vehicle ownership") // suv -> vehicle ownership
	})

	t.Run("domain inference", func(t *testing.T) {
		qc := parser.Parse("immigrants who arrived after 2015")
		assert.Equal(t, "immigration", qc.Domain)

		qc = parser.Parse("smokers with chronic conditions")
		assert.Equal(t, "health", qc.Domain)

		qc = parser.Parse("households aged 25-34 with children")
		assert.Equal(t, "demographic", qc.Domain)
	})

	t.Run("no domain votes means no domain", func(t *testing.T) {
		qc := parser.Parse("frequent travelers")
		assert.Empty(t, qc.Domain)
	})

	t.Run("ranges extracted", func(t *testing.T) {
		qc := parser.Parse("drivers aged 25-34 earning $100k+")
		require.Len(t, qc.Ranges, 2)
		assert.Equal(t, UnitYears, qc.Ranges[0].Unit)
		assert.Equal(t, UnitDollars, qc.Ranges[1].Unit)
	})

	t.Run("deterministic concept order", func(t *testing.T) {
		first := parser.Parse("wealthy young drivers with savings")
		for i := 0; i < 20; i++ {
			again := parser.Parse("wealthy young drivers with savings")
			if !reflect.DeepEqual(first.Concepts, again.Concepts) {
				t.Fatalf("concept order changed between runs: %v vs %v", first.Concepts, again.Concepts)
			}
		}
	})
}

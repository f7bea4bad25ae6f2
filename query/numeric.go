package query

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/cohort/core"
)

// Units assigned to normalized ranges.
const (
	UnitYears   = "years"
	UnitDollars = "dollars"
	UnitPercent = "percent"
	UnitYear    = "year"
)

var (
	// Age-style band: "25-34", "25 to 34"
	bandRe = regexp.MustCompile(`\b(\d{1,3})\s*(?:-|–|to)\s*(\d{1,3})\b`)

	// Money threshold or amount: "$100k+", "$50,000", "$1.5m"
	moneyRe = regexp.MustCompile(`\$\s*(\d+(?:[.,]\d+)*)\s*([kKmM])?\s*(\+)?`)

	// Percentage: "35%", "12.5 %"
	percentRe = regexp.MustCompile(`\b(\d{1,3}(?:\.\d+)?)\s*%`)

	// Calendar year: "2015"
	yearRe = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
)

// ExtractRanges finds numeric patterns in text and normalizes them to
// (min, max, unit) ranges. Open upper bounds are represented by +Inf.
func ExtractRanges(text string) []core.NumericRange {
	var ranges []core.NumericRange

	for _, m := range bandRe.FindAllStringSubmatch(text, -1) {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil || lo > hi {
			continue
		}
		ranges = append(ranges, core.NumericRange{Min: lo, Max: hi, Unit: UnitYears})
	}

	for _, m := range moneyRe.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k":
			value *= 1_000
		case "m":
			value *= 1_000_000
		}
		r := core.NumericRange{Min: value, Max: value, Unit: UnitDollars}
		if m[3] == "+" {
			r.Max = math.Inf(1)
		}
		ranges = append(ranges, r)
	}

	for _, m := range percentRe.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil || value > 100 {
			continue
		}
		ranges = append(ranges, core.NumericRange{Min: value, Max: value, Unit: UnitPercent})
	}

	for _, m := range yearRe.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		ranges = append(ranges, core.NumericRange{Min: value, Max: value, Unit: UnitYear})
	}

	return ranges
}

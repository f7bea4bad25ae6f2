package query

import "strings"

// Stop words filtered out during tokenization
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "who": true, "their": true, "or": true,
}

// Tokenize splits text into words, lowercases, trims punctuation, and
// removes stop words.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// ContainsAllTokens checks if all query tokens appear in the document.
func ContainsAllTokens(document, queryText string) bool {
	queryTokens := Tokenize(queryText)
	if len(queryTokens) == 0 {
		return false
	}

	docTokens := Tokenize(document)
	docSet := make(map[string]bool, len(docTokens))
	for _, token := range docTokens {
		docSet[token] = true
	}

	for _, token := range queryTokens {
		if !docSet[token] {
			return false
		}
	}

	return true
}

package badger

import "fmt"

// Key prefixes for different data types
const (
	variablePrefix         = "varrec"
	variableCategoryPrefix = "varcat"
	embeddingPrefix        = "varemb"
)

// makeVariableKey generates a key for a variable record by code.
func makeVariableKey(code string) []byte {
	return []byte(fmt.Sprintf("%s:%s", variablePrefix, code))
}

// makeCategoryKey generates a composite key for the category index.
// Format: prefix:category:code
func makeCategoryKey(category, code string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", variableCategoryPrefix, category, code))
}

// makePartialCategoryKey generates a partial key for category scans.
func makePartialCategoryKey(category string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", variableCategoryPrefix, category))
}

// makeEmbeddingKey generates a key for an embedding vector by code.
func makeEmbeddingKey(code string) []byte {
	return []byte(fmt.Sprintf("%s:%s", embeddingPrefix, code))
}

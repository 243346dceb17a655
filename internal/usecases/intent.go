package usecases

import "strings"

// Keyword sets for intent detection. Matching is plain case-insensitive
// substring containment; no tokenization or language model involved.
var (
	providerKeywords = []string{"proveedor", "proveedora", "supplier"}
	clientKeywords   = []string{"cliente", "client"}
)

// IsProviderIntent reports whether the text declares a supplier. The router
// checks this before IsClientIntent, so a text matching both keyword sets
// resolves to provider.
func IsProviderIntent(text string) bool {
	return containsAny(text, providerKeywords)
}

// IsClientIntent reports whether the text declares a client.
func IsClientIntent(text string) bool {
	return containsAny(text, clientKeywords)
}

func containsAny(text string, keywords []string) bool {
	normalized := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

package normalize

import "strings"

// CategoryGeneral is returned when no keyword matches.
const CategoryGeneral = "general"

type categoryKeyword struct {
	keyword  string
	category string
}

// categoryKeywords is scanned in order; the first hit wins.
var categoryKeywords = []categoryKeyword{
	{"shoe", "footwear"},
	{"sneaker", "footwear"},
	{"phone", "electronics"},
	{"mobile", "electronics"},
	{"shirt", "apparel"},
	{"t-shirt", "apparel"},
}

// InferCategory guesses a product category from its free-text name.
func InferCategory(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}
	return CategoryGeneral
}

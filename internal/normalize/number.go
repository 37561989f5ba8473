// Package normalize turns untyped input into numbers and product categories.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// strictNumberRegex accepts an optional minus sign, digits and an optional
// fractional part. Exponents, separators and units are rejected.
var strictNumberRegex = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ParseStrictNumber reads value as a finite number.
// Numeric Go values are accepted as they are; strings only when the trimmed
// text is a plain decimal. Any other input reports false.
func ParseStrictNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		return parseStrictString(string(v))
	case string:
		return parseStrictString(v)
	default:
		return 0, false
	}
}

func parseStrictString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strictNumberRegex.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(n)
}

// ParseLooseNumber is the permissive coercion used for spreadsheet input.
// It accepts exponent notation, a leading plus sign and 0x/0o/0b integers,
// but still rejects empty text and non-finite results.
func ParseLooseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if hasRadixPrefix(s) {
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return 0, false
		}
		return float64(n), true
	}

	// strconv accepts these spellings, plain number coercion does not
	lower := strings.ToLower(strings.TrimLeft(s, "+-"))
	if strings.HasPrefix(lower, "inf") || strings.HasPrefix(lower, "nan") || strings.Contains(s, "_") {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(n)
}

func hasRadixPrefix(s string) bool {
	if len(s) < 3 || s[0] != '0' {
		return false
	}
	switch s[1] {
	case 'x', 'X', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

func finite(n float64) (float64, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

package export

import (
	"fmt"
	"strconv"
	"strings"
)

// EscapeField renders one CSV field. nil renders empty; text containing a
// comma, a double quote or a newline is quoted with inner quotes doubled.
func EscapeField(value interface{}) string {
	s := fieldString(value)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// UnescapeField is the inverse of EscapeField
func UnescapeField(field string) string {
	if len(field) >= 2 && strings.HasPrefix(field, `"`) && strings.HasSuffix(field, `"`) {
		return strings.ReplaceAll(field[1:len(field)-1], `""`, `"`)
	}
	return field
}

func fieldString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *float64:
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// joinRow escapes and joins one CSV record
func joinRow(values []interface{}) string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = EscapeField(v)
	}
	return strings.Join(fields, ",")
}

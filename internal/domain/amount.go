package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pricelens/backend/internal/normalize"
)

// Amount is a price as reported by an upstream source.
// Text keeps the original spelling when the source sent a string, so values
// such as "$1,299" survive a JSON round trip. Valid is false when the value is
// not a plain number.
type Amount struct {
	Value float64
	Text  string
	Valid bool
}

// NewAmount returns a valid numeric amount
func NewAmount(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

// AmountFromText keeps s verbatim and parses it with the strict number rule
func AmountFromText(s string) Amount {
	v, ok := normalize.ParseStrictNumber(s)
	return Amount{Value: v, Text: s, Valid: ok}
}

// Number returns the amount under the strict number rule
func (a Amount) Number() (float64, bool) {
	if a.Text != "" {
		return normalize.ParseStrictNumber(a.Text)
	}
	if !a.Valid {
		return 0, false
	}
	return normalize.ParseStrictNumber(a.Value)
}

// IsZero reports whether the amount carries nothing
func (a Amount) IsZero() bool {
	return a.Text == "" && !a.Valid
}

// String renders the amount for tabular output; absent amounts are empty
func (a Amount) String() string {
	if a.Text != "" {
		return a.Text
	}
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

// MarshalJSON writes numbers as numbers, upstream text as a string and absent
// amounts as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Text != "" {
		return json.Marshal(a.Text)
	}
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts a number, a string or null
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountFromText(s)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("amount must be a number or string: %w", err)
	}
	*a = NewAmount(v)
	return nil
}

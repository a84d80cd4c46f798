package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Amount is a fixed-point currency value in cents. Currency is never held
// or stored as floating point.
type Amount int64

var reDecimal = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)

// ParseAmount parses a currency value from model or document text,
// normalizing currency symbols, thousands separators, and surrounding
// whitespace first. "$75,000.00" parses to 7500000.
func ParseAmount(s string) (Amount, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimPrefix(cleaned, "£")
	cleaned = strings.TrimPrefix(cleaned, "€")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	// Accountant-style negatives: (123.45)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	if !reDecimal.MatchString(cleaned) {
		return 0, fmt.Errorf("malformed currency value: %q", s)
	}
	if strings.HasPrefix(cleaned, "-") {
		negative = true
		cleaned = cleaned[1:]
	}

	whole, frac := cleaned, "0"
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		whole, frac = cleaned[:i], cleaned[i+1:]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed currency value: %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed currency value: %q", s)
	}
	cents := w*100 + f
	if negative {
		cents = -cents
	}
	return Amount(cents), nil
}

// String renders the amount as a two-decimal string, e.g. "75000.00".
func (a Amount) String() string {
	cents := int64(a)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Negative reports whether the amount is below zero.
func (a Amount) Negative() bool { return a < 0 }

// MarshalJSON renders the fixed-point string form; the record's field
// mapping round-trips through JSON without touching floats.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts the string form produced by MarshalJSON as well as
// bare JSON numbers written by earlier revisions.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

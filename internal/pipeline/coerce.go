package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Outcome says what coercion did to a cell.
type Outcome uint8

const (
	// Coerced means the cell is now a finite number.
	Coerced Outcome = iota
	// Unchanged means the original string was kept because it did not parse.
	Unchanged
	// Invalid means the cell was null or a non-finite number and is now null.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Coerced:
		return "coerced"
	case Unchanged:
		return "unchanged"
	}
	return "invalid"
}

// Coercion is the tagged result of CoerceValue.
type Coercion struct {
	Outcome Outcome
	Value   Value
}

var groupedDigits = regexp.MustCompile(`(\d),(\d)`)

// CoerceValue converts one raw cell into a number where possible.
func CoerceValue(v Value) Coercion {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return Coercion{Outcome: Invalid, Value: Null()}
		}
		return Coercion{Outcome: Coerced, Value: v}
	case KindString:
		if f, ok := parseCleaned(v.str); ok {
			return Coercion{Outcome: Coerced, Value: Number(f)}
		}
		return Coercion{Outcome: Unchanged, Value: v}
	}
	return Coercion{Outcome: Invalid, Value: Null()}
}

// Coerce is CoerceValue without the outcome tag.
func Coerce(v Value) Value { return CoerceValue(v).Value }

// cleanNumeric collapses digit-grouping commas and drops every rune that is
// not a digit, '.' or '-'.
func cleanNumeric(s string) string {
	s = groupedDigits.ReplaceAllString(s, "$1$2")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseCleaned(s string) (float64, bool) {
	c := cleanNumeric(s)
	if c == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(c, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

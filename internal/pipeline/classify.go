package pipeline

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// SampleSize bounds how many leading rows the classifier inspects.
	SampleSize = 100
	// Threshold is the share of non-empty values that must qualify; the comparison is strict.
	Threshold = 0.8
)

// FieldType is the semantic type inferred for a field.
type FieldType uint8

const (
	TypeEmpty FieldType = iota
	TypeInteger
	TypeNumeric
	TypeDate
	TypeCategorical
)

func (t FieldType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeNumeric:
		return "numeric"
	case TypeDate:
		return "date"
	case TypeCategorical:
		return "categorical"
	}
	return "empty"
}

// IsNumeric reports whether stats can be computed for the type.
func (t FieldType) IsNumeric() bool { return t == TypeNumeric || t == TypeInteger }

func (t FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *FieldType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = ParseFieldType(s)
	return nil
}

func (t FieldType) MarshalYAML() (any, error) { return t.String(), nil }

// ParseFieldType maps a type name back to a FieldType. Unknown names become TypeCategorical.
func ParseFieldType(s string) FieldType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empty":
		return TypeEmpty
	case "integer":
		return TypeInteger
	case "numeric":
		return TypeNumeric
	case "date":
		return TypeDate
	}
	return TypeCategorical
}

// Sample returns the leading rows used for inference.
func Sample(rows []Record) []Record {
	if len(rows) > SampleSize {
		return rows[:SampleSize]
	}
	return rows
}

// Classify infers a FieldType for every field seen in the sample of rows.
// Fields that only appear after the sample are not classified.
func Classify(rows []Record) map[string]FieldType {
	sample := Sample(rows)
	types := make(map[string]FieldType)
	if len(sample) == 0 {
		return types
	}

	var fields []string
	seen := make(map[string]struct{})
	for _, row := range sample {
		for name := range row {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			fields = append(fields, name)
		}
	}

	for _, name := range fields {
		values := make([]Value, 0, len(sample))
		for _, row := range sample {
			v, ok := row[name]
			if !ok || v.IsNull() {
				continue
			}
			if s, isStr := v.Str(); isStr && s == "" {
				continue
			}
			values = append(values, v)
		}
		types[name] = classifyValues(values)
	}
	return types
}

func classifyValues(values []Value) FieldType {
	if len(values) == 0 {
		return TypeEmpty
	}
	limit := float64(len(values)) * Threshold

	numeric := 0
	integral := true
	for _, v := range values {
		if _, ok := numericValue(v); !ok {
			continue
		}
		numeric++
		if integral && !wholeNumber(v) {
			integral = false
		}
	}
	if float64(numeric) > limit {
		if integral {
			return TypeInteger
		}
		return TypeNumeric
	}

	dates := 0
	for _, v := range values {
		if isDate(v) {
			dates++
		}
	}
	if float64(dates) > limit {
		return TypeDate
	}
	return TypeCategorical
}

func numericValue(v Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	if s, ok := v.Str(); ok && strings.TrimSpace(s) != "" {
		return parseCleaned(s)
	}
	return 0, false
}

// wholeNumber converts v without cleaning, so "1,200" and "$950" are not
// whole numbers even though they count as numeric.
func wholeNumber(v Value) bool {
	f, ok := v.Float()
	if !ok {
		s, isStr := v.Str()
		if !isStr {
			return false
		}
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return f == math.Trunc(f)
}

// maxEpochMillis bounds numbers accepted as millisecond timestamps.
const maxEpochMillis = 8.64e15

// isDate accepts date strings and finite numbers in timestamp range.
func isDate(v Value) bool {
	if f, ok := v.Float(); ok {
		return !math.IsNaN(f) && math.Abs(f) <= maxEpochMillis
	}
	if s, ok := v.Str(); ok {
		_, ok := ParseDate(s)
		return ok
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
}

// ParseDate reports whether s reads as a calendar date in one of the common
// layouts browsers and spreadsheets emit.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

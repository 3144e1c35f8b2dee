package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(field string, vals ...Value) []Record {
	rows := make([]Record, len(vals))
	for i, v := range vals {
		rows[i] = Record{field: v}
	}
	return rows
}

func strs(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		vals []Value
		want FieldType
	}{
		{"all empty", []Value{Null(), String(""), Null()}, TypeEmpty},
		{"integers", strs("1", "2", "30", "400", "5"), TypeInteger},
		{"numbers", []Value{Number(1.5), Number(2), String("3.25"), String("4")}, TypeNumeric},
		{"currency amounts", strs("$1,200", "$950", "$10"), TypeNumeric},
		{"iso dates", strs("2024-01-15", "2024-02-01", "2024-03-10T10:00:00Z"), TypeDate},
		{"named dates", strs("2024-01-15", "15 Jan 2024", "2024-02-29", "Mon Jan 2 2006"), TypeDate},
		{"words", strs("north", "south", "east"), TypeCategorical},
		{"all garbage", strs("--", "??", "n/a"), TypeCategorical},
		{"nulls ignored", []Value{Number(1), Null(), Number(2), String(""), Number(3)}, TypeInteger},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(column("f", tc.vals...))
			assert.Equal(t, tc.want, got["f"])
		})
	}
}

func TestClassifyThresholdIsStrict(t *testing.T) {
	// 8 of 10 numeric is exactly 80%: not enough.
	vals := strs("1", "2", "3", "4", "5", "6", "7", "8", "x", "y")
	assert.Equal(t, TypeCategorical, Classify(column("f", vals...))["f"])

	// 9 of 10 crosses it.
	vals = strs("1", "2", "3", "4", "5", "6", "7", "8", "9", "y")
	assert.Equal(t, TypeInteger, Classify(column("f", vals...))["f"])

	// Same boundary for dates.
	vals = strs("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "a", "b", "2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08")
	assert.Equal(t, TypeCategorical, Classify(column("f", vals...))["f"])
}

func TestClassifyNumericPrecedesDate(t *testing.T) {
	// Unix epochs parse as numbers long before anything looks at dates.
	vals := strs("1700000000", "1700086400", "1700172800", "20240115")
	assert.Equal(t, TypeInteger, Classify(column("ts", vals...))["ts"])
}

func TestClassifyIntegerRefinement(t *testing.T) {
	vals := []Value{Number(1), Number(2), String("3.5"), Number(4), Number(5)}
	assert.Equal(t, TypeNumeric, Classify(column("f", vals...))["f"])

	vals = []Value{Number(1), String("2.0"), Number(3)}
	assert.Equal(t, TypeInteger, Classify(column("f", vals...))["f"])
}

func TestClassifyIntegerNeedsPlainNumbers(t *testing.T) {
	tests := []struct {
		name string
		vals []Value
		want FieldType
	}{
		{"grouped digits", strs("1,200", "$950", "2,500"), TypeNumeric},
		{"one formatted cell", strs("1200", "950", "2500", "1,100", "300", "40", "7", "8", "9", "10"), TypeNumeric},
		{"plain digits", strs("1200", "950", "2500"), TypeInteger},
		{"padded and exponent", strs(" 12 ", "1e3", "7.0"), TypeInteger},
		{"mixed kinds", []Value{Number(3), String("4"), Number(5)}, TypeInteger},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(column("f", tc.vals...))["f"])
		})
	}
}

func TestClassifyTimestampsCountAsDates(t *testing.T) {
	// One epoch-millis number and four date strings: only numbers-as-dates
	// lift this past the threshold.
	vals := []Value{Number(1700000000000), String("2024-01-01"), String("2024-01-02"), String("2024-01-03"), String("2024-01-04")}
	assert.Equal(t, TypeDate, Classify(column("f", vals...))["f"])

	vals = []Value{Number(9e15), String("2024-01-01"), String("2024-01-02"), String("2024-01-03"), String("2024-01-04")}
	assert.Equal(t, TypeCategorical, Classify(column("f", vals...))["f"])
}

func TestClassifySamplesLeadingRows(t *testing.T) {
	rows := make([]Record, 0, 150)
	for i := 0; i < 100; i++ {
		rows = append(rows, Record{"n": String(fmt.Sprint(i))})
	}
	for i := 0; i < 50; i++ {
		rows = append(rows, Record{"n": String("word"), "late": String("1")})
	}
	types := Classify(rows)
	require.Len(t, types, 1)
	assert.Equal(t, TypeInteger, types["n"])
	_, ok := types["late"]
	assert.False(t, ok, "a field that only appears after the sample must not be classified")
}

func TestClassifyPriceScenario(t *testing.T) {
	rows := []Record{
		{"price": String("$1,200")},
		{"price": String("950")},
		{"price": String("abc")},
	}
	out := Transform(rows)
	assert.True(t, out[0]["price"].Equal(Number(1200)))
	assert.True(t, out[1]["price"].Equal(Number(950)))
	assert.True(t, out[2]["price"].Equal(String("abc")))

	assert.Equal(t, TypeCategorical, Classify(rows)["price"])
}

func TestFieldTypeJSON(t *testing.T) {
	for _, ft := range []FieldType{TypeEmpty, TypeInteger, TypeNumeric, TypeDate, TypeCategorical} {
		b, err := ft.MarshalJSON()
		require.NoError(t, err)
		var back FieldType
		require.NoError(t, back.UnmarshalJSON(b))
		assert.Equal(t, ft, back)
	}
	assert.Equal(t, TypeCategorical, ParseFieldType("nonsense"))
}

func TestClassifyEmptyInput(t *testing.T) {
	assert.Empty(t, Classify(nil))
}

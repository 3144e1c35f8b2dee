package pipeline

// Tally counts coercion outcomes across a transform.
type Tally struct {
	Rows      int
	Coerced   int
	Unchanged int
	Invalid   int
}

func (t *Tally) add(o Outcome) {
	switch o {
	case Coerced:
		t.Coerced++
	case Unchanged:
		t.Unchanged++
	default:
		t.Invalid++
	}
}

// Transform coerces every cell of every row into new records.
// Row order is preserved and the input is not modified.
func Transform(rows []Record) []Record {
	out, _ := TransformTally(rows)
	return out
}

// TransformTally is Transform that also reports what happened to each cell.
func TransformTally(rows []Record) ([]Record, Tally) {
	var t Tally
	out := make([]Record, len(rows))
	for i, row := range rows {
		rec := make(Record, len(row))
		for k, v := range row {
			c := CoerceValue(v)
			t.add(c.Outcome)
			rec[k] = c.Value
		}
		out[i] = rec
	}
	t.Rows = len(rows)
	return out, t
}

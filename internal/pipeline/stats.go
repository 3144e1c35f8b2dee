package pipeline

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// DefaultOutlierThreshold is the robust |z| above which a value counts as an outlier.
const DefaultOutlierThreshold = 3.5

// Statistics summarizes one field's numeric values for one batch.
type Statistics struct {
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Avg    float64 `json:"avg" yaml:"avg"`
	Sum    float64 `json:"sum" yaml:"sum"`
	Median float64 `json:"median" yaml:"median"`
	StdDev float64 `json:"stdDev" yaml:"stdDev"`
}

// Compute summarizes values. values must not be empty; the caller checks
// that before asking for statistics.
func Compute(values []float64) Statistics {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return computeSorted(sorted)
}

func computeSorted(sorted []float64) Statistics {
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := float64(len(sorted))
	return Statistics{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Avg:    sum / n,
		Sum:    sum,
		Median: median(sorted),
		StdDev: populationStdDev(sorted, sum),
	}
}

func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 != 0 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// populationStdDev divides by N, not N-1.
func populationStdDev(values []float64, sum float64) float64 {
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Spread holds the opt-in robust spread metrics.
type Spread struct {
	Q1               float64 `json:"q1" yaml:"q1"`
	Q3               float64 `json:"q3" yaml:"q3"`
	IQR              float64 `json:"iqr" yaml:"iqr"`
	MAD              float64 `json:"mad" yaml:"mad"`
	OutliersCount    int     `json:"outliers" yaml:"outliers"`
	OutliersMaxAbsZ  float64 `json:"outliersMaxAbsZ" yaml:"outliersMaxAbsZ"`
	OutlierThreshold float64 `json:"outlierThreshold" yaml:"outlierThreshold"`
}

// Describe computes Statistics plus quartiles and MAD-based outliers.
// Quartiles need at least 4 values and outliers at least 8; below that the
// corresponding fields stay zero.
func Describe(values []float64, threshold float64) (Statistics, Spread) {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	st := computeSorted(sorted)
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	sp := Spread{OutlierThreshold: threshold}
	data := stats.Float64Data(sorted)
	if len(sorted) >= 4 {
		if q, err := stats.Quartile(data); err == nil {
			sp.Q1, sp.Q3 = q.Q1, q.Q3
			sp.IQR = q.Q3 - q.Q1
		}
	}
	mad, err := stats.MedianAbsoluteDeviationPopulation(data)
	if err != nil {
		return st, sp
	}
	sp.MAD = mad
	if len(sorted) < 8 || mad == 0 {
		return st, sp
	}
	for _, v := range sorted {
		az := math.Abs(0.6745 * (v - st.Median) / mad)
		if az > threshold {
			sp.OutliersCount++
		}
		if az > sp.OutliersMaxAbsZ {
			sp.OutliersMaxAbsZ = az
		}
	}
	return st, sp
}

// NumericValues re-reads one field of transformed rows as numbers. Null and
// blank cells read as 0. Rows without the field and cells that do not read as
// a number are dropped.
func NumericValues(rows []Record, field string) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		v, ok := row[field]
		if !ok {
			continue
		}
		switch v.Kind() {
		case KindNull:
			out = append(out, 0)
		case KindNumber:
			if f, _ := v.Float(); !math.IsNaN(f) {
				out = append(out, f)
			}
		case KindString:
			s, _ := v.Str()
			s = strings.TrimSpace(s)
			if s == "" {
				out = append(out, 0)
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				out = append(out, f)
			}
		}
	}
	return out
}

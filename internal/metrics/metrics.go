package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

const namespace = "fieldlens"

// Recorder collects pipeline measurements in its own registry.
// A nil *Recorder accepts every call and records nothing.
type Recorder struct {
	reg        *prometheus.Registry
	rows       prometheus.Counter
	coercions  *prometheus.CounterVec
	fieldTypes *prometheus.CounterVec
	stats      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ pipeline.Observer = (*Recorder)(nil)

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Rows passed through transformation.",
		}),
		coercions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coercions_total",
			Help:      "Cells by coercion outcome.",
		}, []string{"outcome"}),
		fieldTypes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_types_total",
			Help:      "Classified fields by inferred type.",
		}, []string{"type"}),
		stats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_requests_total",
			Help:      "Statistics requests by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent per pipeline operation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"op"}),
	}
	r.reg.MustRegister(r.rows, r.coercions, r.fieldTypes, r.stats, r.duration)
	return r
}

// Registry exposes the underlying registry, or nil for a nil Recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) ObserveTransform(t pipeline.Tally) {
	if r == nil {
		return
	}
	r.rows.Add(float64(t.Rows))
	r.coercions.WithLabelValues(pipeline.Coerced.String()).Add(float64(t.Coerced))
	r.coercions.WithLabelValues(pipeline.Unchanged.String()).Add(float64(t.Unchanged))
	r.coercions.WithLabelValues(pipeline.Invalid.String()).Add(float64(t.Invalid))
}

func (r *Recorder) ObserveFieldTypes(types map[string]pipeline.FieldType) {
	if r == nil {
		return
	}
	for _, ft := range types {
		r.fieldTypes.WithLabelValues(ft.String()).Inc()
	}
}

func (r *Recorder) ObserveStats(result string) {
	if r == nil {
		return
	}
	r.stats.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveDuration(op string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(op).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// It is a no-op for a nil Recorder or an empty path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

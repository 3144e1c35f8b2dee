package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Source is a read-only collection of raw records.
type Source interface {
	// Count returns the size of the whole collection, ignoring paging and projection.
	Count(ctx context.Context) (int, error)
	// Fetch returns the requested page, projected to req.Fields when set.
	Fetch(ctx context.Context, req PageRequest) ([]Record, error)
}

// Observer receives per-run measurements. metrics.Recorder implements it.
type Observer interface {
	ObserveTransform(t Tally)
	ObserveFieldTypes(types map[string]FieldType)
	ObserveStats(result string)
	ObserveDuration(op string, d time.Duration)
}

// Pipeline runs projection, transformation, classification and statistics over a Source.
// It keeps no state between calls.
type Pipeline struct {
	src      Source
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger; the default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver sets the measurement sink.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithClock overrides time.Now for duration measurements.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New returns a Pipeline reading from src.
func New(src Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:    src,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.With(slog.String("component", "pipeline"))
	return p
}

// Listing is a typed, paginated batch.
type Listing struct {
	Data       []Record             `json:"data" yaml:"data"`
	FieldTypes map[string]FieldType `json:"fieldTypes" yaml:"fieldTypes"`
	Count      int                  `json:"count" yaml:"count"`
	Pagination PageMetadata         `json:"pagination" yaml:"pagination"`
}

// List fetches one page, normalizes it and classifies its fields.
func (p *Pipeline) List(ctx context.Context, req PageRequest) (*Listing, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := p.now()

	var (
		raw   []Record
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := p.src.Fetch(gctx, req)
		if err != nil {
			return fmt.Errorf("fetch rows: %w", err)
		}
		raw = rows
		return nil
	})
	g.Go(func() error {
		n, err := p.src.Count(gctx)
		if err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.logger.DebugContext(ctx, "fetched page",
		slog.Int("page", req.Page),
		slog.Int("limit", req.Limit),
		slog.Int("rows", len(raw)),
		slog.Int("total", total),
	)

	data, tally := TransformTally(raw)
	types := Classify(raw)
	if p.observer != nil {
		p.observer.ObserveTransform(tally)
		p.observer.ObserveFieldTypes(types)
		p.observer.ObserveDuration("list", p.now().Sub(start))
	}
	p.logger.DebugContext(ctx, "classified page",
		slog.Int("fields", len(types)),
		slog.Int("coerced", tally.Coerced),
		slog.Int("unchanged", tally.Unchanged),
		slog.Int("invalid", tally.Invalid),
	)

	return &Listing{
		Data:       data,
		FieldTypes: types,
		Count:      total,
		Pagination: NewPageMetadata(req.Page, req.Limit, total),
	}, nil
}

// Fields returns the classified field names in sorted order.
func (l *Listing) Fields() []string {
	out := make([]string, 0, len(l.FieldTypes))
	for name := range l.FieldTypes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NumericFields returns the sorted names of numeric and integer fields.
func (l *Listing) NumericFields() []string {
	var out []string
	for name, t := range l.FieldTypes {
		if t.IsNumeric() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ValidateNumericField checks that field was classified numeric or integer.
func (l *Listing) ValidateNumericField(field string) error {
	t, ok := l.FieldTypes[field]
	if ok && t.IsNumeric() {
		return nil
	}
	return &NonNumericFieldError{Field: field, Type: t, Known: ok, Available: l.NumericFields()}
}

// StatsResult is the answer to a stats request that passed validation.
type StatsResult struct {
	Success bool        `json:"success" yaml:"success"`
	Field   string      `json:"field,omitempty" yaml:"field,omitempty"`
	Count   int         `json:"count,omitempty" yaml:"count,omitempty"`
	Stats   *Statistics `json:"stats,omitempty" yaml:"stats,omitempty"`
	Spread  *Spread     `json:"spread,omitempty" yaml:"spread,omitempty"`
	Message string      `json:"message,omitempty" yaml:"message,omitempty"`
}

// StatsOptions tunes FieldStats.
type StatsOptions struct {
	// Extended adds quartiles and MAD outliers.
	Extended         bool
	OutlierThreshold float64
}

// FieldStats aggregates one field of the listing. Call ValidateNumericField first.
func (l *Listing) FieldStats(field string, opt StatsOptions) *StatsResult {
	values := NumericValues(l.Data, field)
	if len(values) == 0 {
		return &StatsResult{Success: false, Message: NoNumericValuesMessage}
	}
	res := &StatsResult{Success: true, Field: field, Count: len(values)}
	if opt.Extended {
		st, sp := Describe(values, opt.OutlierThreshold)
		res.Stats, res.Spread = &st, &sp
		return res
	}
	st := Compute(values)
	res.Stats = &st
	return res
}

// Stats lists the page, validates field and aggregates it. A
// *NonNumericFieldError is returned when validation fails.
func (p *Pipeline) Stats(ctx context.Context, field string, req PageRequest, opt StatsOptions) (*StatsResult, error) {
	listing, err := p.List(ctx, req)
	if err != nil {
		return nil, err
	}
	start := p.now()
	if err := listing.ValidateNumericField(field); err != nil {
		p.observe("rejected")
		p.logger.InfoContext(ctx, "stats rejected", slog.String("field", field), slog.String("error", err.Error()))
		return nil, err
	}
	res := listing.FieldStats(field, opt)
	if res.Success {
		p.observe("ok")
	} else {
		p.observe("empty")
	}
	if p.observer != nil {
		p.observer.ObserveDuration("stats", p.now().Sub(start))
	}
	return res, nil
}

func (p *Pipeline) observe(result string) {
	if p.observer != nil {
		p.observer.ObserveStats(result)
	}
}

package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

// Markdown renders a result as plain sectioned text suitable for pasting into notes or prompts.
func Markdown(v any) (string, error) {
	var b strings.Builder
	switch r := v.(type) {
	case *ListResult:
		writeSummary(&b, r.Source, r.Count, r.FieldTypes)
		writeSchema(&b, r.FieldTypes)
		b.WriteString("\n[PAGE]\n")
		p := r.Pagination
		b.WriteString(fmt.Sprintf("Page %d of %d (limit %d, %d rows on page)\n", p.Page, p.Pages, p.Limit, len(r.Data)))
		writeRows(&b, r.Data)
	case *FieldsSummary:
		writeSummary(&b, r.Source, -1, r.FieldTypes)
		writeSchema(&b, r.FieldTypes)
	case *pipeline.StatsResult:
		writeStats(&b, r)
	case *pipeline.Rejection:
		b.WriteString("[REJECTED]\n")
		b.WriteString(fmt.Sprintf("%s: %s\n", r.Error, safeVal(r.Message)))
		if len(r.AvailableNumericFields) == 0 {
			b.WriteString("No numeric fields in this batch.\n")
		} else {
			b.WriteString("Available numeric fields: " + strings.Join(r.AvailableNumericFields, ", ") + "\n")
		}
	default:
		return "", fmt.Errorf("markdown: unsupported result %T", v)
	}
	return b.String(), nil
}

func writeSummary(b *strings.Builder, source string, rows int, types map[string]pipeline.FieldType) {
	b.WriteString("[DATASET SUMMARY]\n")
	if source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", source))
	}
	if rows >= 0 {
		b.WriteString(fmt.Sprintf("Rows: %d\n", rows))
	}
	b.WriteString(fmt.Sprintf("Fields: %d\n", len(types)))
}

func writeSchema(b *strings.Builder, types map[string]pipeline.FieldType) {
	b.WriteString("\n[SCHEMA]\n")
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		b.WriteString(fmt.Sprintf("- %s: %s\n", safeVal(n), types[n]))
	}
}

// writeRows prints the page as a pipe table. Columns are the union of keys
// across rows; undefined cells are left blank.
func writeRows(b *strings.Builder, rows []pipeline.Record) {
	if len(rows) == 0 {
		return
	}
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
	if len(cols) == 0 {
		b.WriteString(fmt.Sprintf("(%d rows, no fields selected)\n", len(rows)))
		return
	}
	escaped := make([]string, len(cols))
	for i, c := range cols {
		escaped[i] = safeVal(c)
	}
	b.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok && !v.IsNull() {
				cells[i] = safeVal(v.String())
			}
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func writeStats(b *strings.Builder, r *pipeline.StatsResult) {
	b.WriteString("[STATISTICS]\n")
	if !r.Success {
		b.WriteString(r.Message + "\n")
		return
	}
	b.WriteString(fmt.Sprintf("Field: %s (n=%d)\n", safeVal(r.Field), r.Count))
	s := r.Stats
	b.WriteString(fmt.Sprintf("- min %.4g, max %.4g, sum %.4g\n", s.Min, s.Max, s.Sum))
	b.WriteString(fmt.Sprintf("- avg %.4g, median %.4g, std %.4g\n", s.Avg, s.Median, s.StdDev))
	if sp := r.Spread; sp != nil {
		b.WriteString(fmt.Sprintf("- q1 %.4g, q3 %.4g, iqr %.4g, mad %.4g\n", sp.Q1, sp.Q3, sp.IQR, sp.MAD))
		b.WriteString(fmt.Sprintf("- outliers: %d above |z|>%.1f", sp.OutliersCount, sp.OutlierThreshold))
		if sp.OutliersMaxAbsZ > 0 {
			b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", sp.OutliersMaxAbsZ))
		}
		b.WriteString("\n")
	}
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

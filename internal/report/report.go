package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
	"github.com/KaramelBytes/fieldlens-cli/internal/utils"
)

// Format selects how results are rendered.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned by ParseFormat for names it does not know.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat maps a user-supplied name to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q (want json, yaml or markdown)", ErrUnknownFormat, s)
}

// ListResult is the answer to a listing request.
type ListResult struct {
	Success    bool                          `json:"success" yaml:"success"`
	Source     string                        `json:"source,omitempty" yaml:"source,omitempty"`
	Count      int                           `json:"count" yaml:"count"`
	Data       []pipeline.Record             `json:"data" yaml:"data"`
	FieldTypes map[string]pipeline.FieldType `json:"fieldTypes" yaml:"fieldTypes"`
	Pagination pipeline.PageMetadata         `json:"pagination" yaml:"pagination"`
}

// NewListResult wraps a listing for output.
func NewListResult(source string, l *pipeline.Listing) *ListResult {
	return &ListResult{
		Success:    true,
		Source:     source,
		Count:      l.Count,
		Data:       l.Data,
		FieldTypes: l.FieldTypes,
		Pagination: l.Pagination,
	}
}

// FieldsSummary lists the classified fields of a batch.
type FieldsSummary struct {
	Success    bool                          `json:"success" yaml:"success"`
	Source     string                        `json:"source,omitempty" yaml:"source,omitempty"`
	Count      int                           `json:"count" yaml:"count"`
	Fields     []string                      `json:"fields" yaml:"fields"`
	FieldTypes map[string]pipeline.FieldType `json:"fieldTypes" yaml:"fieldTypes"`
}

// NewFieldsSummary builds a FieldsSummary; Count is the number of fields.
func NewFieldsSummary(source string, l *pipeline.Listing) *FieldsSummary {
	fields := l.Fields()
	return &FieldsSummary{
		Success:    true,
		Source:     source,
		Count:      len(fields),
		Fields:     fields,
		FieldTypes: l.FieldTypes,
	}
}

// Write renders v to w. v is one of *ListResult, *FieldsSummary,
// *pipeline.StatsResult or *pipeline.Rejection; JSON and YAML accept anything.
func Write(w io.Writer, format Format, v any) error {
	var (
		b   []byte
		err error
	)
	switch format {
	case FormatJSON, "":
		b, err = utils.PrettyJSON(v)
	case FormatYAML:
		b, err = yaml.Marshal(v)
		if err != nil {
			err = fmt.Errorf("marshal yaml: %w", err)
		}
	case FormatMarkdown:
		var s string
		s, err = Markdown(v)
		b = []byte(s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

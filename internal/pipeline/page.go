package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// ErrInvalidPage is returned for a page or limit outside the accepted range.
var ErrInvalidPage = errors.New("invalid page request")

// PageRequest selects a page of rows and, optionally, a subset of fields.
type PageRequest struct {
	Page   int      `json:"page" validate:"min=1"`
	Limit  int      `json:"limit" validate:"gt=0"`
	Fields []string `json:"fields,omitempty" validate:"dive,required"`
}

// NewPageRequest fills zero page/limit with the defaults.
func NewPageRequest(page, limit int, fields []string) PageRequest {
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	return PageRequest{Page: page, Limit: limit, Fields: fields}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the page bounds.
func (r PageRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidPage, strings.Join(parts, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	return nil
}

// Offset is the index of the first row on the page.
func (r PageRequest) Offset() int { return (r.Page - 1) * r.Limit }

// PageMetadata places a batch inside the full collection.
type PageMetadata struct {
	Page  int `json:"page" yaml:"page"`
	Limit int `json:"limit" yaml:"limit"`
	Total int `json:"total" yaml:"total"`
	Pages int `json:"pages" yaml:"pages"`
}

// NewPageMetadata computes the page count as ceil(total/limit).
func NewPageMetadata(page, limit, total int) PageMetadata {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageMetadata{Page: page, Limit: limit, Total: total, Pages: pages}
}

// ParseFields splits a comma-separated field list, dropping blanks.
func ParseFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Project keeps only the named fields of rec. A nil field list keeps everything.
func Project(rec Record, fields []string) Record {
	if fields == nil {
		return rec
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Page slices and projects rows. The returned total is len(rows), independent
// of the page. A page past the end yields an empty slice.
func Page(rows []Record, req PageRequest) ([]Record, int, error) {
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}
	total := len(rows)
	start := req.Offset()
	if start >= total {
		return []Record{}, total, nil
	}
	end := start + req.Limit
	if end > total || end < start {
		end = total
	}
	out := make([]Record, 0, end-start)
	for _, rec := range rows[start:end] {
		out = append(out, Project(rec, req.Fields))
	}
	return out, total, nil
}

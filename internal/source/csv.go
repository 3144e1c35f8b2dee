package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

type csvOpener struct{}

func (csvOpener) CanOpen(target string) bool {
	name := strings.ToLower(target)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvOpener) Open(_ context.Context, target string, opt Options) (*Dataset, error) {
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(target)
	}
	rows, err := ReadCSV(f, delim)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", filepath.Base(target), err)
	}
	return &Dataset{Source: NewMemory(rows), Name: filepath.Base(target), Kind: "csv"}, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a header row and the records below it. Every cell becomes a
// string value; cells missing from a short row are left out of its record.
func ReadCSV(r io.Reader, delim rune) ([]pipeline.Record, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if delim != 0 {
		cr.Comma = delim
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []pipeline.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	names := headerNames(header)

	rows := []pipeline.Record{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rowRecord(names, rec))
	}
	return rows, nil
}

// headerNames trims header cells and names blank ones by position.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column%d", i+1)
		}
		names[i] = h
	}
	return names
}

// rowRecord maps cells onto names. Cells past the header are dropped.
func rowRecord(names, cells []string) pipeline.Record {
	n := min(len(names), len(cells))
	rec := make(pipeline.Record, n)
	for i := 0; i < n; i++ {
		rec[names[i]] = pipeline.String(cells[i])
	}
	return rec
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

package source

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

type xlsxOpener struct{}

func (xlsxOpener) CanOpen(target string) bool {
	return strings.HasSuffix(strings.ToLower(target), ".xlsx")
}

func (xlsxOpener) Open(_ context.Context, target string, opt Options) (*Dataset, error) {
	rows, sheet, err := ReadXLSX(target, opt.Sheet)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Source: NewMemory(rows),
		Name:   filepath.Base(target) + "#" + sheet,
		Kind:   "xlsx",
	}, nil
}

// ReadXLSX reads the named sheet (or the first one) with the first row as
// header. It returns the records and the sheet actually read.
func ReadXLSX(path, sheet string) ([]pipeline.Record, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", fmt.Errorf("workbook '%s' has no sheets", filepath.Base(path))
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if i := slices.IndexFunc(sheets, func(s string) bool { return strings.EqualFold(s, sheet) }); i >= 0 {
		sheet = sheets[i]
	} else {
		return nil, "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			sheet, filepath.Base(path), strings.Join(sheets, ", "))
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	rows := []pipeline.Record{}
	if len(grid) == 0 {
		return rows, sheet, nil
	}
	names := headerNames(grid[0])
	for _, cells := range grid[1:] {
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, rowRecord(names, cells))
	}
	return rows, sheet, nil
}

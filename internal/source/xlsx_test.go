package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

func writeWorkbook(t *testing.T, sheet string, grid [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), sheet)
	for r, row := range grid {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeWorkbook(t, "Sales", [][]any{
		{"price", "region"},
		{"$1,200", "north"},
		{950, "south"},
		{"abc"},
	})

	rows, sheet, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, "Sales", sheet)
	require.Len(t, rows, 3)
	assert.True(t, rows[0]["price"].Equal(pipeline.String("$1,200")))
	assert.True(t, rows[1]["price"].Equal(pipeline.String("950")))
	_, ok := rows[2]["region"]
	assert.False(t, ok)

	_, sheet, err = ReadXLSX(path, "sales")
	require.NoError(t, err)
	assert.Equal(t, "Sales", sheet)
}

func TestReadXLSXMissingSheet(t *testing.T) {
	path := writeWorkbook(t, "Sales", [][]any{{"a"}, {1}})
	_, _, err := ReadXLSX(path, "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Sales")
}

func TestOpenXLSXClassifiesThroughPipeline(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"amount", "when"},
		{"$10", "2024-01-01"},
		{"$20", "2024-01-02"},
		{"$35.5", "2024-01-03"},
	})
	ds, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, "xlsx", ds.Kind)

	listing, err := pipeline.New(ds).List(context.Background(), pipeline.NewPageRequest(1, 100, nil))
	require.NoError(t, err)
	assert.Equal(t, pipeline.TypeNumeric, listing.FieldTypes["amount"])
	assert.Equal(t, pipeline.TypeDate, listing.FieldTypes["when"])
	assert.Equal(t, 3, listing.Count)
}

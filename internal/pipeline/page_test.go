package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedRows(n int) []Record {
	rows := make([]Record, n)
	for i := range rows {
		rows[i] = Record{"id": Number(float64(i + 1)), "name": String(fmt.Sprintf("row-%d", i+1))}
	}
	return rows
}

func TestPageMetadata(t *testing.T) {
	tests := []struct {
		total, limit, pages int
	}{
		{0, 100, 0},
		{1, 100, 1},
		{100, 100, 1},
		{105, 100, 2},
		{250, 10, 25},
		{251, 10, 26},
	}
	for _, tc := range tests {
		md := NewPageMetadata(1, tc.limit, tc.total)
		assert.Equalf(t, tc.pages, md.Pages, "total=%d limit=%d", tc.total, tc.limit)
	}
}

func TestPageSlicesAndCounts(t *testing.T) {
	rows := numberedRows(105)

	first, total, err := Page(rows, NewPageRequest(1, 100, nil))
	require.NoError(t, err)
	assert.Equal(t, 105, total)
	assert.Len(t, first, 100)

	second, total, err := Page(rows, NewPageRequest(2, 100, nil))
	require.NoError(t, err)
	assert.Equal(t, 105, total)
	require.Len(t, second, 5)
	assert.True(t, second[0]["id"].Equal(Number(101)))

	third, total, err := Page(rows, NewPageRequest(3, 100, nil))
	require.NoError(t, err)
	assert.Equal(t, 105, total)
	assert.NotNil(t, third)
	assert.Empty(t, third)
}

func TestPageProjection(t *testing.T) {
	rows := numberedRows(3)
	got, _, err := Page(rows, NewPageRequest(1, 10, []string{"name", "missing"}))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, rec := range got {
		assert.Len(t, rec, 1)
		_, ok := rec["name"]
		assert.True(t, ok)
	}
	// Input rows are untouched.
	assert.Len(t, rows[0], 2)
}

func TestPageRequestDefaults(t *testing.T) {
	req := NewPageRequest(0, 0, nil)
	assert.Equal(t, DefaultPage, req.Page)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.NoError(t, req.Validate())
	assert.Equal(t, 0, req.Offset())
	assert.Equal(t, 200, NewPageRequest(3, 100, nil).Offset())
}

func TestPageRequestValidate(t *testing.T) {
	bad := []PageRequest{
		{Page: -1, Limit: 10},
		{Page: 1, Limit: -5},
		{Page: 1, Limit: 10, Fields: []string{"a", ""}},
	}
	for _, req := range bad {
		err := req.Validate()
		require.Errorf(t, err, "%+v", req)
		assert.ErrorIs(t, err, ErrInvalidPage)
	}
	_, _, err := Page(numberedRows(2), PageRequest{Page: 0, Limit: 1})
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestParseFields(t *testing.T) {
	assert.Nil(t, ParseFields(""))
	assert.Nil(t, ParseFields("   "))
	assert.Equal(t, []string{"price", "region"}, ParseFields(" price, ,region "))
}

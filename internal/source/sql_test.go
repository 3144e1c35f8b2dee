package source

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

func seedSQLite(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	db, err := sqlx.Connect("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	db.MustExec(`CREATE TABLE sales (id INTEGER PRIMARY KEY, price TEXT, qty INTEGER, note TEXT)`)
	for i := 1; i <= n; i++ {
		var note any
		if i%2 == 0 {
			note = fmt.Sprintf("memo %c", 'a'+i)
		}
		db.MustExec(`INSERT INTO sales (id, price, qty, note) VALUES (?, ?, ?, ?)`, i, fmt.Sprintf("$%d,000", i), i*2, note)
	}
	return path
}

func TestParseSQLTarget(t *testing.T) {
	tests := []struct {
		target, table string
		want          sqlTarget
	}{
		{"sqlite:///tmp/x.db?table=rows", "", sqlTarget{"sqlite", "sqlite", "/tmp/x.db", "rows"}},
		{"sqlite://x.db", "fallback", sqlTarget{"sqlite", "sqlite", "x.db", "fallback"}},
		{"postgres://u:p@db:5432/app?sslmode=disable&table=t1", "", sqlTarget{"postgres", "postgres", "postgres://u:p@db:5432/app?sslmode=disable", "t1"}},
		{"postgresql://db/app?table=t1", "", sqlTarget{"postgres", "postgres", "postgres://db/app", "t1"}},
		{"mysql://u:p@tcp(db:3306)/app?parseTime=true&table=t2", "", sqlTarget{"mysql", "mysql", "u:p@tcp(db:3306)/app?parseTime=true", "t2"}},
	}
	for _, tc := range tests {
		got, err := parseSQLTarget(tc.target, tc.table)
		require.NoError(t, err, tc.target)
		assert.Equal(t, tc.want, got, tc.target)
	}
}

func TestParseSQLTargetRejects(t *testing.T) {
	for _, target := range []string{
		"sqlite://x.db",
		"sqlite://x.db?table=drop;table",
		"sqlite://?table=t",
		"oracle://x?table=t",
	} {
		_, err := parseSQLTarget(target, "")
		assert.Error(t, err, target)
	}
}

func TestSQLiteSource(t *testing.T) {
	path := seedSQLite(t, 12)
	ctx := context.Background()

	ds, err := Open(ctx, "sqlite://"+path+"?table=sales", Options{})
	require.NoError(t, err)
	defer ds.Close()
	assert.Equal(t, "sqlite", ds.Kind)

	n, err := ds.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	rows, err := ds.Fetch(ctx, pipeline.NewPageRequest(2, 5, nil))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.True(t, rows[0]["id"].Equal(pipeline.Number(6)))
	assert.True(t, rows[0]["price"].Equal(pipeline.String("$6,000")))
	assert.True(t, rows[0]["note"].Equal(pipeline.String("memo g")))
	assert.True(t, rows[1]["note"].IsNull())

	rows, err = ds.Fetch(ctx, pipeline.NewPageRequest(3, 5, []string{"price", "ghost"}))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, pipeline.Record{"price": pipeline.String("$11,000")}, rows[0])

	rows, err = ds.Fetch(ctx, pipeline.NewPageRequest(1, 3, []string{"ghost"}))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[0])
}

func TestSQLiteSourceThroughPipeline(t *testing.T) {
	path := seedSQLite(t, 9)
	ctx := context.Background()
	ds, err := Open(ctx, "sqlite://"+path, Options{Table: "sales"})
	require.NoError(t, err)
	defer ds.Close()

	res, err := pipeline.New(ds).Stats(ctx, "price", pipeline.NewPageRequest(1, 100, nil), pipeline.StatsOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 9, res.Count)
	assert.Equal(t, 45000.0, res.Stats.Sum)
	assert.Equal(t, 5000.0, res.Stats.Median)

	_, err = pipeline.New(ds).Stats(ctx, "note", pipeline.NewPageRequest(1, 100, nil), pipeline.StatsOptions{})
	var nerr *pipeline.NonNumericFieldError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, []string{"id", "price", "qty"}, nerr.Available)
}

func TestSQLiteMissingTable(t *testing.T) {
	path := seedSQLite(t, 1)
	ds, err := Open(context.Background(), "sqlite://"+path+"?table=nothere", Options{})
	require.NoError(t, err)
	defer ds.Close()
	_, err = ds.Count(context.Background())
	assert.Error(t, err)
}

func TestSQLitePagesFollowKeyOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.db")
	db, err := sqlx.Connect("sqlite", path)
	require.NoError(t, err)
	db.MustExec(`CREATE TABLE codes (code TEXT, amount INTEGER)`)
	// Insertion order differs from key order.
	for _, c := range []string{"e", "b", "g", "a", "f", "c", "d"} {
		db.MustExec(`INSERT INTO codes (code, amount) VALUES (?, ?)`, c, int(c[0]))
	}
	require.NoError(t, db.Close())

	ctx := context.Background()
	ds, err := Open(ctx, "sqlite://"+path+"?table=codes", Options{})
	require.NoError(t, err)
	defer ds.Close()

	var seen []string
	for page := 1; page <= 3; page++ {
		rows, err := ds.Fetch(ctx, pipeline.NewPageRequest(page, 3, []string{"code"}))
		require.NoError(t, err)
		for _, r := range rows {
			s, _ := r["code"].Str()
			seen = append(seen, s)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, seen)
}

func TestSQLiteColumnLookupRetriesAfterCancel(t *testing.T) {
	path := seedSQLite(t, 4)
	ds, err := Open(context.Background(), "sqlite://"+path+"?table=sales", Options{})
	require.NoError(t, err)
	defer ds.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ds.Fetch(cancelled, pipeline.NewPageRequest(1, 2, []string{"qty"}))
	require.Error(t, err)

	rows, err := ds.Fetch(context.Background(), pipeline.NewPageRequest(1, 2, []string{"qty"}))
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Record{
		{"qty": pipeline.Number(2)},
		{"qty": pipeline.Number(4)},
	}, rows)
}

func TestOrderColumn(t *testing.T) {
	col, err := orderColumn([]string{"Order Date", "id", "price"})
	require.NoError(t, err)
	assert.Equal(t, "id", col)

	_, err = orderColumn([]string{"a b"})
	assert.Error(t, err)
}

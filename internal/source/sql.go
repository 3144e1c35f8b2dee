package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlTarget is a parsed database target.
type sqlTarget struct {
	kind   string // sqlite|postgres|mysql
	driver string
	dsn    string
	table  string
}

var sqlSchemes = []struct{ prefix, kind, driver string }{
	{"sqlite://", "sqlite", "sqlite"},
	{"postgres://", "postgres", "postgres"},
	{"postgresql://", "postgres", "postgres"},
	{"mysql://", "mysql", "mysql"},
}

// parseSQLTarget splits a target into driver, DSN and table. The table= query
// parameter is consumed; everything else is passed to the driver.
func parseSQLTarget(target, defaultTable string) (sqlTarget, error) {
	var t sqlTarget
	var rest string
	for _, s := range sqlSchemes {
		if strings.HasPrefix(strings.ToLower(target), s.prefix) {
			t.kind, t.driver = s.kind, s.driver
			rest = target[len(s.prefix):]
			break
		}
	}
	if t.kind == "" {
		return t, fmt.Errorf("%w: %s", ErrUnsupported, Redact(target))
	}

	base, rawQuery, _ := strings.Cut(rest, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return t, fmt.Errorf("parse %s query: %w", t.kind, err)
	}
	t.table = q.Get("table")
	q.Del("table")
	if t.table == "" {
		t.table = defaultTable
	}
	if t.table == "" {
		return t, fmt.Errorf("%s target needs a table (add ?table=<name> or set sql_table)", t.kind)
	}
	if !identPattern.MatchString(t.table) {
		return t, fmt.Errorf("invalid table name %q", t.table)
	}

	switch t.kind {
	case "postgres":
		// lib/pq takes the URL form directly.
		t.dsn = "postgres://" + base
	default:
		t.dsn = base
	}
	if enc := q.Encode(); enc != "" {
		t.dsn += "?" + enc
	}
	if t.kind == "sqlite" && t.dsn == "" {
		return t, fmt.Errorf("sqlite target needs a database path")
	}
	return t, nil
}

type sqlOpener struct{}

func (sqlOpener) CanOpen(target string) bool {
	lower := strings.ToLower(target)
	for _, s := range sqlSchemes {
		if strings.HasPrefix(lower, s.prefix) {
			return true
		}
	}
	return false
}

func (sqlOpener) Open(ctx context.Context, target string, opt Options) (*Dataset, error) {
	t, err := parseSQLTarget(target, opt.Table)
	if err != nil {
		return nil, err
	}
	if opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opt.Timeout)
		defer cancel()
	}
	db, err := sqlx.ConnectContext(ctx, t.driver, t.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", t.kind, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &Dataset{
		Source: NewSQLTable(db, t.table),
		Name:   Redact(target),
		Kind:   t.kind,
		close:  db.Close,
	}, nil
}

// SQLTable reads one table as records. Column names are field names.
type SQLTable struct {
	db    *sqlx.DB
	table string

	mu    sync.Mutex
	names []string
	cols  map[string]struct{}
}

// NewSQLTable reads table through db. table must be a plain identifier.
func NewSQLTable(db *sqlx.DB, table string) *SQLTable {
	return &SQLTable{db: db, table: table}
}

func (s *SQLTable) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+s.table); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}

// columns returns the table's column names in table order. A successful
// lookup is cached; a failed one is retried on the next call.
func (s *SQLTable) columns(ctx context.Context) ([]string, map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cols != nil {
		return s.names, s.cols, nil
	}
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+s.table+" LIMIT 0")
	if err != nil {
		return nil, nil, fmt.Errorf("columns of %s: %w", s.table, err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns of %s: %w", s.table, err)
	}
	cols := make(map[string]struct{}, len(names))
	for _, n := range names {
		cols[n] = struct{}{}
	}
	s.names, s.cols = names, cols
	return names, cols, nil
}

// selectList builds the column list for req. Requested fields the table does
// not have are skipped; if none remain every column is read and projection
// leaves the records empty.
func selectList(fields []string, cols map[string]struct{}) string {
	if fields == nil {
		return "*"
	}
	var picked []string
	for _, f := range fields {
		if _, ok := cols[f]; ok && identPattern.MatchString(f) {
			picked = append(picked, f)
		}
	}
	if len(picked) == 0 {
		return "*"
	}
	return strings.Join(picked, ", ")
}

// orderColumn picks the column pages are sorted by: the first column whose
// name is a plain identifier, normally the key. Consecutive pages read with
// it do not overlap.
func orderColumn(names []string) (string, error) {
	for _, n := range names {
		if identPattern.MatchString(n) {
			return n, nil
		}
	}
	return "", fmt.Errorf("no column usable for ordering")
}

func (s *SQLTable) Fetch(ctx context.Context, req pipeline.PageRequest) ([]pipeline.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	names, cols, err := s.columns(ctx)
	if err != nil {
		return nil, err
	}
	order, err := orderColumn(names)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", s.table, err)
	}
	list := selectList(req.Fields, cols)
	query := s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT ? OFFSET ?", list, s.table, order))
	rows, err := s.db.QueryxContext(ctx, query, req.Limit, req.Offset())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	out := []pipeline.Record{}
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		rec := make(pipeline.Record, len(m))
		for k, v := range m {
			rec[k] = pipeline.FromAny(v)
		}
		out = append(out, pipeline.Project(rec, req.Fields))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return out, nil
}

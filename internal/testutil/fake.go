package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dbmirror/internal/core"
	"dbmirror/internal/database"
)

// FakeTable is the in-memory state of one table of a FakeConn.
type FakeTable struct {
	Definition core.TableDefinition
	Columns    []core.Column
	Rows       [][]sql.NullString
}

// FakeConn is an in-memory database.Conn. Statements are recorded instead of executed;
// failures are injected by matching a substring of the statement.
type FakeConn struct {
	Name   string
	Tables map[string]*FakeTable
	// Order is the enumeration order of ListTables. Tables missing from it are not listed.
	Order []string

	Execs    []string
	Prepared []string
	Inserted [][]any
	Closes   int

	ListErr    error
	ShowErr    map[string]error
	ColumnsErr map[string]error
	ExecErr    map[string]error
	PrepareErr error
	QueryErr   error
	InsertErr  error
	// InsertErrAt fails the n-th insert (1-based) with InsertErr.
	InsertErrAt int
	CloseErr    error
}

var _ database.Conn = (*FakeConn)(nil)

// NewFakeConn returns an empty fake bound to database name.
func NewFakeConn(name string) *FakeConn {
	return &FakeConn{Name: name, Tables: map[string]*FakeTable{}}
}

// AddTable registers a table and appends it to the enumeration order.
func (f *FakeConn) AddTable(name string, tbl *FakeTable) *FakeConn {
	f.Tables[name] = tbl
	f.Order = append(f.Order, name)
	return f
}

// Connector returns a database.Connector handing out fakes by database name.
func Connector(conns ...*FakeConn) database.Connector {
	return func(_ context.Context, ep database.Endpoint) (database.Conn, error) {
		for _, c := range conns {
			if c.Name == ep.Database {
				return c, nil
			}
		}
		return nil, core.NewError(core.KindConnection, "", "open "+ep.String(), errors.New("unknown database"))
	}
}

func (f *FakeConn) Database() string { return f.Name }

func (f *FakeConn) ExecContext(ctx context.Context, query string, _ ...any) (sql.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for substr, err := range f.ExecErr {
		if strings.Contains(query, substr) {
			return nil, err
		}
	}
	f.Execs = append(f.Execs, query)
	return driverResult(1), nil
}

func (f *FakeConn) QueryContext(ctx context.Context, query string, _ ...any) (database.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	for name, tbl := range f.Tables {
		if strings.Contains(query, "`"+name+"`") {
			return &fakeRows{cols: core.ColumnNames(tbl.Columns), data: tbl.Rows, pos: -1}, nil
		}
	}
	return nil, fmt.Errorf("fake: no table matches query %q", query)
}

func (f *FakeConn) PrepareContext(_ context.Context, query string) (database.Stmt, error) {
	if f.PrepareErr != nil {
		return nil, f.PrepareErr
	}
	f.Prepared = append(f.Prepared, query)
	return &fakeStmt{conn: f}, nil
}

func (f *FakeConn) ListTables(ctx context.Context) (core.Inventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make(core.Inventory, 0, len(f.Order))
	out = append(out, f.Order...)
	return out, nil
}

func (f *FakeConn) ShowCreateTable(_ context.Context, table string) (core.TableDefinition, error) {
	if err := f.ShowErr[table]; err != nil {
		return "", err
	}
	tbl, ok := f.Tables[table]
	if !ok {
		return "", fmt.Errorf("Table '%s.%s' doesn't exist", f.Name, table)
	}
	return tbl.Definition, nil
}

func (f *FakeConn) Columns(_ context.Context, table string) ([]core.Column, error) {
	if err := f.ColumnsErr[table]; err != nil {
		return nil, err
	}
	tbl, ok := f.Tables[table]
	if !ok {
		return nil, nil
	}
	return tbl.Columns, nil
}

func (f *FakeConn) Close() error {
	f.Closes++
	return f.CloseErr
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

type fakeStmt struct {
	conn   *FakeConn
	closed bool
}

func (s *fakeStmt) ExecContext(_ context.Context, args ...any) (sql.Result, error) {
	if s.closed {
		return nil, errors.New("fake: statement is closed")
	}
	s.conn.Inserted = append(s.conn.Inserted, args)
	if s.conn.InsertErr != nil && (s.conn.InsertErrAt == 0 || s.conn.InsertErrAt == len(s.conn.Inserted)) {
		return nil, s.conn.InsertErr
	}
	return driverResult(1), nil
}

func (s *fakeStmt) Close() error {
	s.closed = true
	return nil
}

type fakeRows struct {
	cols []string
	data [][]sql.NullString
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("fake: expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}
	for i, d := range dest {
		ns, ok := d.(*sql.NullString)
		if !ok {
			return fmt.Errorf("fake: unsupported scan destination %T", d)
		}
		*ns = row[i]
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }
func (r *fakeRows) Err() error                 { return nil }
func (r *fakeRows) Close() error               { return nil }

// Str is a valid NullString.
func Str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// Null is a NULL NullString.
var Null = sql.NullString{}

// Cols builds column metadata; names prefixed with '*' are primary key columns.
func Cols(names ...string) []core.Column {
	cols := make([]core.Column, 0, len(names))
	for _, n := range names {
		c := core.Column{Name: strings.TrimPrefix(n, "*")}
		if strings.HasPrefix(n, "*") {
			c.Key = core.PrimaryKeyMarker
		}
		cols = append(cols, c)
	}
	return cols
}

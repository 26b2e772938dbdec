// Package database is the connection collaborator of a sync run. It opens MySQL connections
// from an Endpoint and exposes statement execution, queries, prepared statements and the
// introspection calls the reconciler needs, behind the Conn interface so callers can be
// exercised against fakes.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"dbmirror/internal/core"
)

// Endpoint holds what is needed to reach one database.
type Endpoint struct {
	Host     string            `toml:"host" yaml:"host" env:"HOST"`
	Port     int               `toml:"port" yaml:"port" env:"PORT"`
	User     string            `toml:"user" yaml:"user" env:"USER"`
	Password string            `toml:"password" yaml:"password" env:"PASSWORD"`
	Database string            `toml:"database" yaml:"database" env:"DATABASE"`
	Params   map[string]string `toml:"params" yaml:"params"`
}

// DSN renders the endpoint as a go-sql-driver DSN.
func (e Endpoint) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = e.User
	cfg.Passwd = e.Password
	cfg.Net = "tcp"
	port := e.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = net.JoinHostPort(e.Host, strconv.Itoa(port))
	cfg.DBName = e.Database
	if len(e.Params) > 0 {
		cfg.Params = make(map[string]string, len(e.Params))
		for k, v := range e.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}

// String hides the password.
func (e Endpoint) String() string {
	port := e.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s@%s/%s", e.User, net.JoinHostPort(e.Host, strconv.Itoa(port)), e.Database)
}

// Rows is the cursor returned by QueryContext. *sql.Rows satisfies it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Stmt is a prepared statement. *sql.Stmt satisfies it.
type Stmt interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// Conn is an open connection to one database.
type Conn interface {
	// Database returns the name of the database the connection is bound to.
	Database() string
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	PrepareContext(ctx context.Context, query string) (Stmt, error)

	// ListTables returns the base tables in the server's enumeration order.
	ListTables(ctx context.Context) (core.Inventory, error)
	// ShowCreateTable returns the DDL of table as reported by the server.
	ShowCreateTable(ctx context.Context, table string) (core.TableDefinition, error)
	// Columns returns the column metadata of table in ordinal order.
	Columns(ctx context.Context, table string) ([]core.Column, error)

	Close() error
}

// Connector opens a Conn for an endpoint.
type Connector func(ctx context.Context, ep Endpoint) (Conn, error)

// MySQL is a Conn backed by a database/sql pool.
type MySQL struct {
	db   *sql.DB
	name string
}

var _ Conn = (*MySQL)(nil)

// Open establishes a connection with the endpoint and pings it to test a connection.
// If something went wrong, returns a ConnectionError, otherwise the connection.
func Open(ctx context.Context, ep Endpoint) (Conn, error) {
	db, err := sql.Open("mysql", ep.DSN())
	if err != nil {
		return nil, core.NewError(core.KindConnection, "", "open "+ep.String(), err)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		pingErr = describe(pingErr)
		if closeErr := db.Close(); closeErr != nil {
			pingErr = fmt.Errorf("%w; additionally failed to close connection: %v", pingErr, closeErr)
		}
		return nil, core.NewError(core.KindConnection, "", "ping "+ep.String(), pingErr)
	}

	// A sync run is sequential; one connection keeps session state predictable.
	db.SetMaxOpenConns(1)

	return &MySQL{db: db, name: ep.Database}, nil
}

// New wraps an already opened pool.
func New(db *sql.DB, name string) *MySQL {
	return &MySQL{db: db, name: name}
}

func (m *MySQL) Database() string {
	return m.name
}

func (m *MySQL) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := m.db.ExecContext(ctx, query, args...)
	return res, describe(err)
}

func (m *MySQL) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, describe(err)
	}
	return rows, nil
}

func (m *MySQL) PrepareContext(ctx context.Context, query string) (Stmt, error) {
	stmt, err := m.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, describe(err)
	}
	return stmt, nil
}

// Close closes the pool. Calling Close more than once is safe.
func (m *MySQL) Close() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// describe adds a short hint for the server errors a sync run commonly hits.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case 1044, 1045:
		return fmt.Errorf("access denied, check user and password: %w", err)
	case 1049:
		return fmt.Errorf("database does not exist: %w", err)
	case 1142, 1227:
		return fmt.Errorf("missing privilege: %w", err)
	case 1359:
		return fmt.Errorf("trigger already exists: %w", err)
	default:
		return err
	}
}

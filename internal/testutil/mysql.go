// Package testutil starts disposable MySQL servers for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"dbmirror/internal/database"
)

const (
	OriginDB      = "origin"
	DestinationDB = "destination"
	rootPassword  = "testpass"
)

// MySQLServer is one container holding both the origin and the destination database,
// since replication triggers write across databases on the same server.
type MySQLServer struct {
	Origin      database.Endpoint
	Destination database.Endpoint

	// Root is an administrative pool without a default database.
	Root *sql.DB
}

// StartMySQL runs a MySQL 8 container with the origin and destination databases created.
// The container is terminated when the test finishes.
func StartMySQL(t *testing.T) *MySQLServer {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase(OriginDB),
		mysql.WithUsername("root"),
		mysql.WithPassword(rootPassword),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "failed to get container host")
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err, "failed to get mapped port")

	base := database.Endpoint{
		Host:     host,
		Port:     port.Int(),
		User:     "root",
		Password: rootPassword,
	}

	root, err := sql.Open("mysql", base.DSN())
	require.NoError(t, err, "failed to open root connection")
	// one connection so session settings made through Exec stick
	root.SetMaxOpenConns(1)
	require.NoError(t, root.PingContext(ctx), "failed to ping database")
	t.Cleanup(func() {
		if err := root.Close(); err != nil {
			t.Errorf("failed to close root connection: %v", err)
		}
	})

	_, err = root.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", DestinationDB))
	require.NoError(t, err, "failed to create destination database")

	origin := base
	origin.Database = OriginDB
	destination := base
	destination.Database = DestinationDB

	return &MySQLServer{Origin: origin, Destination: destination, Root: root}
}

// Exec runs every statement on the root connection and fails the test on the first error.
func (s *MySQLServer) Exec(t *testing.T, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := s.Root.ExecContext(context.Background(), stmt)
		require.NoError(t, err, "statement failed: %s", stmt)
	}
}

// Tables lists the base tables of schema.
func (s *MySQLServer) Tables(t *testing.T, schema string) []string {
	t.Helper()
	rows, err := s.Root.QueryContext(context.Background(),
		"SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name", schema)
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	return tables
}

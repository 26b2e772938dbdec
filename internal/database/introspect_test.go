package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmirror/internal/core"
	"dbmirror/internal/database"
	"dbmirror/internal/testutil"
)

func TestOpenFailsWithConnectionError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	_, err := database.Open(context.Background(), database.Endpoint{Host: "127.0.0.1", Port: 1, User: "nobody", Database: "nope"})
	require.Error(t, err)
	assert.Equal(t, core.KindConnection, core.KindOf(err))
}

func TestMySQLIntrospectionIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv := testutil.StartMySQL(t)
	srv.Exec(t,
		"CREATE TABLE origin.users (id INT NOT NULL AUTO_INCREMENT PRIMARY KEY, email VARCHAR(100) NOT NULL, created_at DATETIME NULL, "+
			"domain VARCHAR(100) AS (SUBSTRING_INDEX(email, '@', -1)) VIRTUAL)",
		"CREATE TABLE origin.audit (msg TEXT)",
		"CREATE VIEW origin.user_emails AS SELECT email FROM origin.users",
	)

	ctx := context.Background()
	conn, err := database.Open(ctx, srv.Origin)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, testutil.OriginDB, conn.Database())

	t.Run("list tables skips views and orders by name", func(t *testing.T) {
		tables, err := conn.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Inventory{"audit", "users"}, tables)
	})

	t.Run("show create table", func(t *testing.T) {
		def, err := conn.ShowCreateTable(ctx, "users")
		require.NoError(t, err)
		assert.Contains(t, string(def), "CREATE TABLE `users`")
	})

	t.Run("columns in ordinal order with key marker", func(t *testing.T) {
		cols, err := conn.Columns(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "email", "created_at", "domain"}, core.ColumnNames(cols))
		assert.Equal(t, []string{"id"}, core.PrimaryKeyColumns(cols))
		assert.Equal(t, []string{"id", "email", "created_at"}, core.WritableColumnNames(cols))
	})

	t.Run("table without key", func(t *testing.T) {
		cols, err := conn.Columns(ctx, "audit")
		require.NoError(t, err)
		assert.Empty(t, core.PrimaryKeyColumns(cols))
	})

	t.Run("double close is safe", func(t *testing.T) {
		c, err := database.Open(ctx, srv.Origin)
		require.NoError(t, err)
		require.NoError(t, c.Close())
		assert.NoError(t, c.Close())
	})
}

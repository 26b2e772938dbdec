package sync_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"dbmirror/internal/core"
	"dbmirror/internal/sync"
	"dbmirror/internal/testutil"
)

func TestSyncIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv := testutil.StartMySQL(t)
	srv.Exec(t,
		"SET SESSION sql_mode = ''",
		"CREATE TABLE origin.users (id INT NOT NULL PRIMARY KEY, email VARCHAR(100) NOT NULL, born DATE NOT NULL DEFAULT '0000-00-00')",
		"INSERT INTO origin.users VALUES (1, 'a@example.com', '0000-00-00'), (2, 'b@example.com', '1990-02-03')",
		"CREATE TABLE origin.logs (line VARCHAR(100))",
		"INSERT INTO origin.logs VALUES ('first')",
		"CREATE TABLE origin.shared (id INT PRIMARY KEY)",
		"CREATE TABLE destination.shared (id INT PRIMARY KEY)",
		"INSERT INTO destination.shared VALUES (42)",
		"CREATE TABLE destination.stale (id INT)",
	)

	ctx := context.Background()
	run := func(installTriggers bool) *sync.Report {
		t.Helper()
		rep, err := sync.New(sync.Options{
			Origin:                srv.Origin,
			Destination:           srv.Destination,
			InstallOriginTriggers: installTriggers,
			ReplaceTriggers:       true,
			Logger:                zaptest.NewLogger(t),
		}).Run(ctx)
		require.NoError(t, err)
		return rep
	}

	rep := run(true)
	assert.Equal(t, []core.TableName{"stale"}, rep.Dropped)
	assert.ElementsMatch(t, []core.TableName{"users", "logs"}, rep.Created)
	assert.Equal(t, []core.TableName{"shared"}, rep.Skipped)
	assert.Equal(t, int64(3), rep.RowsCopied())
	assert.Len(t, rep.Triggers, 9)

	assert.Equal(t, []string{"logs", "shared", "users"}, srv.Tables(t, testutil.DestinationDB))

	var born string
	require.NoError(t, srv.Root.QueryRowContext(ctx, "SELECT born FROM destination.users WHERE id = 1").Scan(&born))
	assert.Equal(t, "1971-01-01", born)

	var shared int
	require.NoError(t, srv.Root.QueryRowContext(ctx, "SELECT id FROM destination.shared").Scan(&shared))
	assert.Equal(t, 42, shared, "existing destination tables are left untouched")

	t.Run("keyed triggers replicate row changes", func(t *testing.T) {
		srv.Exec(t,
			"INSERT INTO origin.users VALUES (3, 'c@example.com', '2000-01-01')",
			"UPDATE origin.users SET email = 'changed@example.com' WHERE id = 2",
			"DELETE FROM origin.users WHERE id = 1",
		)
		emails := query(t, srv.Root, "SELECT email FROM destination.users ORDER BY id")
		assert.Equal(t, []string{"changed@example.com", "c@example.com"}, emails)
	})

	t.Run("full mirror triggers rewrite the table", func(t *testing.T) {
		srv.Exec(t,
			"INSERT INTO origin.logs VALUES ('second')",
			"DELETE FROM origin.logs WHERE line = 'first'",
		)
		lines := query(t, srv.Root, "SELECT line FROM destination.logs ORDER BY line")
		assert.Equal(t, []string{"second"}, lines)
	})

	t.Run("second run is a no-op for tables", func(t *testing.T) {
		rep := run(true)
		assert.Empty(t, rep.Dropped)
		assert.Empty(t, rep.Created)
		assert.Len(t, rep.Triggers, 9)
	})
}

func query(t *testing.T, db *sql.DB, q string) []string {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), q)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

package trigger_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dbmirror/internal/core"
	"dbmirror/internal/dialect/mysql"
	"dbmirror/internal/plan"
	"dbmirror/internal/testutil"
	"dbmirror/internal/trigger"
)

func newSynthesizer(origin *testutil.FakeConn, p *plan.Plan, dryRun bool) *trigger.Synthesizer {
	gen := mysql.NewMySQLGenerator(origin.Name, "dst")
	exec := plan.NewExecutor(origin, core.EndpointOrigin, p, dryRun)
	return trigger.New(gen, origin, exec, zap.NewNop())
}

func TestInstallKeyed(t *testing.T) {
	origin := testutil.NewFakeConn("src").AddTable("users", &testutil.FakeTable{Columns: testutil.Cols("*id", "email")})
	p := &plan.Plan{}

	specs, err := newSynthesizer(origin, p, false).Install(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, []string{"users_insert", "users_update", "users_delete"},
		[]string{specs[0].Name, specs[1].Name, specs[2].Name})
	for _, s := range specs {
		assert.Equal(t, core.StrategyKeyed, s.Strategy)
	}
	require.Len(t, origin.Execs, 3)
	assert.Contains(t, origin.Execs[1], "DELETE FROM `dst`.`users` WHERE `id` = OLD.`id`")
	assert.Contains(t, origin.Execs[1], "WHERE `id` = NEW.`id`")
	assert.Equal(t, []string{
		"DROP TRIGGER IF EXISTS `src`.`users_delete`",
		"DROP TRIGGER IF EXISTS `src`.`users_update`",
		"DROP TRIGGER IF EXISTS `src`.`users_insert`",
	}, p.RollbackStatements())
}

func TestInstallFullMirror(t *testing.T) {
	origin := testutil.NewFakeConn("src").AddTable("logs", &testutil.FakeTable{Columns: testutil.Cols("line")})

	specs, err := newSynthesizer(origin, nil, false).Install(context.Background(), "logs")
	require.NoError(t, err)
	require.Len(t, specs, 3)
	for i, s := range specs {
		assert.Equal(t, core.StrategyFullMirror, s.Strategy)
		assert.NotContains(t, origin.Execs[i], "WHERE")
		assert.Contains(t, origin.Execs[i], "DELETE FROM `dst`.`logs`;")
	}
}

func TestInstallReplaceDropsFirst(t *testing.T) {
	origin := testutil.NewFakeConn("src").AddTable("users", &testutil.FakeTable{Columns: testutil.Cols("*id")})
	s := newSynthesizer(origin, nil, false)
	s.Replace = true

	_, err := s.Install(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, origin.Execs, 6)
	assert.Equal(t, "DROP TRIGGER IF EXISTS `src`.`users_insert`", origin.Execs[0])
	assert.True(t, strings.HasPrefix(origin.Execs[1], "CREATE TRIGGER `users_insert`"))
}

func TestInstallDryRunOnlyRecords(t *testing.T) {
	origin := testutil.NewFakeConn("src").AddTable("users", &testutil.FakeTable{Columns: testutil.Cols("*id")})
	p := &plan.Plan{}

	_, err := newSynthesizer(origin, p, true).Install(context.Background(), "users")
	require.NoError(t, err)
	assert.Empty(t, origin.Execs)
	assert.Len(t, p.StatementsFor(core.EndpointOrigin), 3)
}

func TestInstallFailureNamesTableAndOperation(t *testing.T) {
	origin := testutil.NewFakeConn("src").AddTable("users", &testutil.FakeTable{Columns: testutil.Cols("*id")})
	origin.ExecErr = map[string]error{"AFTER UPDATE": errors.New("TRIGGER command denied")}

	specs, err := newSynthesizer(origin, nil, false).Install(context.Background(), "users")
	require.Error(t, err)
	assert.Equal(t, core.KindTriggerInstall, core.KindOf(err))
	assert.EqualError(t, err, "TriggerInstallError: create update trigger (table users): TRIGGER command denied")

	// the insert trigger stays installed
	require.Len(t, specs, 1)
	assert.Equal(t, core.TriggerInsert, specs[0].Event)
	assert.Len(t, origin.Execs, 1)
}

func TestInstallColumnsFailure(t *testing.T) {
	origin := testutil.NewFakeConn("src")
	origin.ColumnsErr = map[string]error{"users": errors.New("gone")}

	_, err := newSynthesizer(origin, nil, false).Install(context.Background(), "users")
	assert.Equal(t, core.KindSchemaIntrospection, core.KindOf(err))
}

func TestBuildIsPure(t *testing.T) {
	origin := testutil.NewFakeConn("src")
	s := newSynthesizer(origin, nil, false)

	specs, err := s.Build("orders", testutil.Cols("*tenant", "*id", "total"))
	require.NoError(t, err)
	assert.Contains(t, specs[0].SQL, "WHERE `tenant` = NEW.`tenant` AND `id` = NEW.`id`")
	assert.Empty(t, origin.Execs)

	_, err = s.Build("bad-name", testutil.Cols("*id"))
	var idErr *mysql.IdentifierError
	assert.ErrorAs(t, err, &idErr)
}

package plan

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmirror/internal/core"
)

func TestPlanAddStatement(t *testing.T) {
	tests := []struct {
		name string
		add  func(p *Plan)
		want []core.Operation
	}{
		{
			name: "empty statement ignored",
			add: func(p *Plan) {
				p.AddStatement(core.EndpointDestination, "users", "   ", core.RiskInfo)
			},
			want: nil,
		},
		{
			name: "default risk is info",
			add: func(p *Plan) {
				p.AddStatement(core.EndpointDestination, "users", " DROP TABLE `d`.`users` ", "")
			},
			want: []core.Operation{
				{Kind: core.OperationSQL, Endpoint: core.EndpointDestination, Table: "users", SQL: "DROP TABLE `d`.`users`", Risk: core.RiskInfo},
			},
		},
		{
			name: "with rollback",
			add: func(p *Plan) {
				p.AddStatementWithRollback(core.EndpointOrigin, "users", "CREATE TRIGGER x", "DROP TRIGGER x", core.RiskWarning)
			},
			want: []core.Operation{
				{Kind: core.OperationSQL, Endpoint: core.EndpointOrigin, Table: "users", SQL: "CREATE TRIGGER x", RollbackSQL: "DROP TRIGGER x", Risk: core.RiskWarning},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Plan{}
			tt.add(p)
			assert.Equal(t, tt.want, p.Operations)
		})
	}
}

func TestPlanFilters(t *testing.T) {
	p := &Plan{}
	p.AddNote("starting")
	p.AddStatementWithRollback(core.EndpointDestination, "a", "CREATE TABLE a", "DROP TABLE a", core.RiskInfo)
	p.AddCopy("a", "copy rows of a")
	p.AddStatement(core.EndpointDestination, "c", "DROP TABLE c", core.RiskDestructive)
	p.AddStatementWithRollback(core.EndpointOrigin, "a", "CREATE TRIGGER a_insert", "DROP TRIGGER a_insert", core.RiskInfo)
	p.AddNote("")

	assert.Equal(t, []string{"CREATE TABLE a", "DROP TABLE c", "CREATE TRIGGER a_insert"}, p.SQLStatements())
	assert.Equal(t, []string{"CREATE TABLE a", "DROP TABLE c"}, p.StatementsFor(core.EndpointDestination))
	assert.Equal(t, []string{"CREATE TRIGGER a_insert"}, p.StatementsFor(core.EndpointOrigin))
	assert.Equal(t, []string{"DROP TRIGGER a_insert", "DROP TABLE a"}, p.RollbackStatements())
	assert.Equal(t, []string{"copy rows of a"}, p.Copies())
	assert.Equal(t, []string{"starting"}, p.Notes())
	assert.Equal(t, []string{"DROP TABLE c"}, p.Destructive())
}

func TestPlanMarkRiskOnlyRaises(t *testing.T) {
	p := &Plan{}
	p.AddStatement(core.EndpointDestination, "c", "DROP TABLE c", core.RiskDestructive)
	p.AddStatement(core.EndpointDestination, "a", "CREATE TABLE a", core.RiskInfo)

	p.MarkRisk("DROP TABLE c", core.RiskWarning)
	p.MarkRisk("CREATE TABLE a", core.RiskWarning)

	assert.Equal(t, core.RiskDestructive, p.Operations[0].Risk)
	assert.Equal(t, core.RiskWarning, p.Operations[1].Risk)
}

func TestNilPlanFilters(t *testing.T) {
	var p *Plan
	assert.Nil(t, p.SQLStatements())
}

type recordingExecer struct {
	queries []string
	err     error
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.queries = append(r.queries, query)
	return nil, nil
}

func TestExecutorExecutesAndRecords(t *testing.T) {
	conn := &recordingExecer{}
	p := &Plan{}
	ex := NewExecutor(conn, core.EndpointDestination, p, false)

	require.NoError(t, ex.Exec(context.Background(), "a", "CREATE TABLE a", "DROP TABLE a", core.RiskInfo))
	assert.Equal(t, []string{"CREATE TABLE a"}, conn.queries)
	assert.Equal(t, []string{"CREATE TABLE a"}, p.SQLStatements())
	assert.False(t, ex.DryRun())
	assert.Same(t, p, ex.Plan())
}

func TestExecutorDryRunOnlyRecords(t *testing.T) {
	conn := &recordingExecer{}
	p := &Plan{}
	ex := NewExecutor(conn, core.EndpointDestination, p, true)

	require.NoError(t, ex.Exec(context.Background(), "c", "DROP TABLE c", "", core.RiskDestructive))
	assert.Empty(t, conn.queries)
	assert.Equal(t, []string{"DROP TABLE c"}, p.Destructive())
}

func TestExecutorFailureIsNotRecorded(t *testing.T) {
	conn := &recordingExecer{err: errors.New("denied")}
	p := &Plan{}
	ex := NewExecutor(conn, core.EndpointDestination, p, false)

	err := ex.Exec(context.Background(), "a", "CREATE TABLE a", "", core.RiskInfo)
	assert.EqualError(t, err, "denied")
	assert.Empty(t, p.Operations)
}

func TestExecutorWithoutPlan(t *testing.T) {
	conn := &recordingExecer{}
	ex := NewExecutor(conn, core.EndpointOrigin, nil, false)
	require.NoError(t, ex.Exec(context.Background(), "a", "SELECT 1", "", core.RiskInfo))
	assert.Equal(t, []string{"SELECT 1"}, conn.queries)
}

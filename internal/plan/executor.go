package plan

import (
	"context"
	"database/sql"

	"dbmirror/internal/core"
)

// Execer is the part of a connection an Executor needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Executor runs statements against one endpoint and records each of them in a plan.
// In dry-run mode statements are recorded but never sent to the server.
type Executor struct {
	conn     Execer
	endpoint core.Endpoint
	plan     *Plan
	dryRun   bool
}

// NewExecutor creates an executor for endpoint. A nil plan disables recording.
func NewExecutor(conn Execer, endpoint core.Endpoint, p *Plan, dryRun bool) *Executor {
	return &Executor{conn: conn, endpoint: endpoint, plan: p, dryRun: dryRun}
}

// DryRun reports whether statements are only recorded.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Plan returns the plan statements are recorded into.
func (e *Executor) Plan() *Plan {
	return e.plan
}

// Exec records stmt and, unless in dry-run mode, executes it. A statement that fails is
// not recorded.
func (e *Executor) Exec(ctx context.Context, table core.TableName, stmt, rollback string, risk core.OperationRisk) error {
	if !e.dryRun {
		if _, err := e.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if e.plan != nil {
		e.plan.AddStatementWithRollback(e.endpoint, table, stmt, rollback, risk)
	}
	return nil
}

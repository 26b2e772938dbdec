// Package reconcile brings the table inventory of the destination in line with the origin:
// tables that only exist in the destination are dropped, tables missing from it are created
// from the origin definition and filled with the origin rows. Tables present on both sides
// are left untouched.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dbmirror/internal/core"
	"dbmirror/internal/database"
	"dbmirror/internal/dialect/mysql"
	"dbmirror/internal/diff"
	"dbmirror/internal/normalize"
	"dbmirror/internal/plan"
)

// Step identifies the per-table phase the reconciler is entering.
type Step string

const (
	StepDrop   Step = "drop"
	StepCreate Step = "create"
	StepCopy   Step = "copy"
)

// Copier copies the rows of one table into the destination.
type Copier interface {
	Copy(ctx context.Context, table core.TableName) (int64, error)
}

// Result describes what a reconciliation did.
type Result struct {
	Origin  core.Inventory           `json:"origin"`
	Diff    *diff.InventoryDiff      `json:"diff"`
	Dropped []core.TableName         `json:"dropped,omitempty"`
	Created []core.TableName         `json:"created,omitempty"`
	Skipped []core.TableName         `json:"skipped,omitempty"`
	Copied  map[core.TableName]int64 `json:"copied,omitempty"`
}

// Reconciler runs one reconciliation. Statements against the destination go through exec,
// so a dry-run executor turns the reconciler into a planner.
type Reconciler struct {
	gen         *mysql.Generator
	origin      database.Conn
	destination database.Conn
	exec        *plan.Executor
	copier      Copier
	logger      *zap.Logger

	// OnStep is called before each per-table step.
	OnStep func(step Step, table core.TableName)
}

// New creates a reconciler. exec must target the destination.
func New(gen *mysql.Generator, origin, destination database.Conn, exec *plan.Executor, copier Copier, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		gen:         gen,
		origin:      origin,
		destination: destination,
		exec:        exec,
		copier:      copier,
		logger:      logger,
	}
}

// Reconcile drops orphaned destination tables in alphabetical order, then creates and copies
// every missing table in origin order. The first failure aborts the run; work done before it
// is left in place.
func (r *Reconciler) Reconcile(ctx context.Context) (*Result, error) {
	originTables, err := r.origin.ListTables(ctx)
	if err != nil {
		return nil, core.NewError(core.KindSchemaIntrospection, "", "list origin tables", err)
	}
	destinationTables, err := r.destination.ListTables(ctx)
	if err != nil {
		return nil, core.NewError(core.KindSchemaIntrospection, "", "list destination tables", err)
	}

	d := diff.Inventories(originTables, destinationTables)
	res := &Result{Origin: originTables, Diff: d, Skipped: d.Shared, Copied: map[core.TableName]int64{}}
	r.logger.Info("compared table inventories",
		zap.Int("origin", len(originTables)),
		zap.Int("destination", len(destinationTables)),
		zap.Int("missing", len(d.Missing)),
		zap.Int("orphaned", len(d.Orphaned)),
	)

	for _, table := range d.Orphaned {
		r.step(StepDrop, table)
		if err := r.drop(ctx, table); err != nil {
			return res, err
		}
		res.Dropped = append(res.Dropped, table)
	}

	for _, table := range d.Missing {
		r.step(StepCreate, table)
		if err := r.create(ctx, table); err != nil {
			return res, err
		}
		res.Created = append(res.Created, table)

		r.step(StepCopy, table)
		n, err := r.copy(ctx, table)
		if err != nil {
			return res, err
		}
		res.Copied[table] = n
	}

	for _, table := range d.Shared {
		r.logger.Debug("table already present in destination, skipping", zap.String("table", table))
	}
	return res, nil
}

func (r *Reconciler) step(step Step, table core.TableName) {
	if r.OnStep != nil {
		r.OnStep(step, table)
	}
}

func (r *Reconciler) drop(ctx context.Context, table core.TableName) error {
	stmt, err := r.gen.DropTable(table)
	if err != nil {
		return core.NewError(core.KindIdentifier, table, "drop table", err)
	}
	if err := r.exec.Exec(ctx, table, stmt, "", core.RiskDestructive); err != nil {
		return core.NewError(core.KindDDLExecution, table, "drop table", err)
	}
	r.logger.Info("dropped orphaned table", zap.String("table", table))
	return nil
}

func (r *Reconciler) create(ctx context.Context, table core.TableName) error {
	// SHOW CREATE TABLE interpolates the name, so it is checked before the definition is read.
	if err := r.gen.Check(table); err != nil {
		return core.NewError(core.KindIdentifier, table, "capture table definition", err)
	}
	def, err := r.origin.ShowCreateTable(ctx, table)
	if err != nil {
		return core.NewError(core.KindSchemaIntrospection, table, "capture table definition", err)
	}

	stmt, err := r.gen.CreateTable(table, normalize.Definition(def))
	if err != nil {
		return core.NewError(core.KindIdentifier, table, "create table", err)
	}
	rollback, err := r.gen.DropTable(table)
	if err != nil {
		return core.NewError(core.KindIdentifier, table, "create table", err)
	}

	if err := r.exec.Exec(ctx, table, stmt, rollback, core.RiskInfo); err != nil {
		return core.NewError(core.KindDDLExecution, table, "create table", err)
	}
	r.logger.Info("created table", zap.String("table", table))
	return nil
}

func (r *Reconciler) copy(ctx context.Context, table core.TableName) (int64, error) {
	if r.exec.DryRun() {
		if p := r.exec.Plan(); p != nil {
			p.AddCopy(table, fmt.Sprintf("copy all rows of %s into %s",
				r.gen.Qualified(r.gen.Origin, table), r.gen.Qualified(r.gen.Destination, table)))
		}
		return 0, nil
	}
	return r.copier.Copy(ctx, table)
}

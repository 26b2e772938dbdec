// Package sync runs a complete origin to destination sync: it owns both connections for the
// duration of the run, reconciles the table inventories, copies the data of newly created
// tables and optionally installs replication triggers on the origin. Connections are closed
// on every exit path.
package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"dbmirror/internal/copier"
	"dbmirror/internal/core"
	"dbmirror/internal/database"
	"dbmirror/internal/dialect/mysql"
	"dbmirror/internal/normalize"
	"dbmirror/internal/plan"
	"dbmirror/internal/preflight"
	"dbmirror/internal/reconcile"
	"dbmirror/internal/trigger"
)

// ErrAlreadyRun is returned when Run is called a second time on the same orchestrator.
var ErrAlreadyRun = errors.New("orchestrator has already run")

// Options struct contains all settings of a sync run. They are read once when the run starts.
type Options struct {
	Origin      database.Endpoint
	Destination database.Endpoint

	// InstallOriginTriggers installs insert, update and delete triggers for every origin table
	// once reconciliation is done.
	InstallOriginTriggers bool
	// ReplaceTriggers drops existing triggers of the same name before creating them.
	ReplaceTriggers bool
	// DryRun records every statement into the report plan instead of executing it. A regular
	// run records the statements it has executed.
	DryRun bool
	// FallbackDate replaces zero-date values during data copy.
	FallbackDate           string
	AllowUnsafeIdentifiers bool

	// Connector opens the connections. Defaults to database.Open.
	Connector database.Connector
	Logger    *zap.Logger
}

// TriggerRecord describes an installed trigger.
type TriggerRecord struct {
	Table    core.TableName       `json:"table"`
	Event    core.TriggerEvent    `json:"event"`
	Name     string               `json:"name"`
	Strategy core.TriggerStrategy `json:"strategy"`
}

// Report is the outcome of a run. It is filled in as the run progresses, so a failed run
// reports the work done before the failure.
type Report struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DryRun      bool   `json:"dryRun"`

	Dropped  []core.TableName         `json:"dropped,omitempty"`
	Created  []core.TableName         `json:"created,omitempty"`
	Skipped  []core.TableName         `json:"skipped,omitempty"`
	Copied   map[core.TableName]int64 `json:"copied,omitempty"`
	Triggers []TriggerRecord          `json:"triggers,omitempty"`

	States []State `json:"states"`
	Final  State   `json:"final"`
	Error  string  `json:"error,omitempty"`

	Plan      *plan.Plan        `json:"plan,omitempty"`
	Preflight *preflight.Result `json:"preflight,omitempty"`

	Duration time.Duration `json:"duration"`
}

// RowsCopied returns the total number of rows copied.
func (r *Report) RowsCopied() int64 {
	var total int64
	for _, n := range r.Copied {
		total += n
	}
	return total
}

// Orchestrator runs one sync. It is single use.
type Orchestrator struct {
	opts   Options
	logger *zap.Logger
	state  State
	report *Report
}

// New creates an orchestrator in the Idle state.
func New(opts Options) *Orchestrator {
	if opts.Connector == nil {
		opts.Connector = database.Open
	}
	if opts.FallbackDate == "" {
		opts.FallbackDate = normalize.DefaultFallbackDate
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		opts:   opts,
		logger: logger,
		state:  StateIdle,
		report: &Report{
			Origin:      opts.Origin.String(),
			Destination: opts.Destination.String(),
			DryRun:      opts.DryRun,
			States:      []State{StateIdle},
			Final:       StateIdle,
		},
	}
}

// State returns the current state of the run.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) enter(s State) {
	if o.state == s {
		return
	}
	o.logger.Debug("state transition", zap.String("from", string(o.state)), zap.String("to", string(s)))
	o.state = s
	o.report.States = append(o.report.States, s)
}

// Run executes the sync and returns its report. The report is returned on failure too.
// Nothing is rolled back: tables dropped, created or copied before a failure stay as they are.
func (o *Orchestrator) Run(ctx context.Context) (rep *Report, err error) {
	if o.state != StateIdle {
		return o.report, ErrAlreadyRun
	}
	rep = o.report
	start := time.Now()

	var origin, destination database.Conn
	defer func() {
		if err != nil {
			o.enter(StateFailed)
			o.logger.Error("sync failed", zap.Error(err))
		}
		o.enter(StateClosingConnections)
		err = multierr.Append(err, o.close(destination, "destination"))
		err = multierr.Append(err, o.close(origin, "origin"))

		rep.Duration = time.Since(start)
		if err != nil {
			rep.Error = err.Error()
			o.state = StateFailed
			rep.Final = StateFailed
			return
		}
		o.enter(StateDone)
		rep.Final = StateDone
		o.logger.Info("sync finished",
			zap.Int("dropped", len(rep.Dropped)),
			zap.Int("created", len(rep.Created)),
			zap.Int64("rows", rep.RowsCopied()),
			zap.Int("triggers", len(rep.Triggers)),
			zap.Duration("duration", rep.Duration),
		)
	}()

	if err := normalize.ValidateFallbackDate(o.opts.FallbackDate); err != nil {
		return rep, core.NewError(core.KindConfig, "", "validate fallback date", err)
	}

	o.enter(StateConnectingOrigin)
	origin, err = o.connect(ctx, o.opts.Origin, "origin")
	if err != nil {
		return rep, err
	}
	o.enter(StateConnectingDestination)
	destination, err = o.connect(ctx, o.opts.Destination, "destination")
	if err != nil {
		return rep, err
	}

	gen := mysql.NewMySQLGenerator(origin.Database(), destination.Database())
	gen.AllowUnsafeIdentifiers = o.opts.AllowUnsafeIdentifiers
	if err := gen.Check(gen.Origin, gen.Destination); err != nil {
		return rep, core.NewError(core.KindIdentifier, "", "validate database names", err)
	}

	p := &plan.Plan{}
	rep.Plan = p
	if o.opts.DryRun {
		p.AddNote("dry run: statements are recorded, not executed")
	}
	destinationExec := plan.NewExecutor(destination, core.EndpointDestination, p, o.opts.DryRun)
	originExec := plan.NewExecutor(origin, core.EndpointOrigin, p, o.opts.DryRun)

	cp := copier.New(gen, origin, destination, o.opts.FallbackDate, o.logger)
	rec := reconcile.New(gen, origin, destination, destinationExec, cp, o.logger)
	rec.OnStep = func(step reconcile.Step, _ core.TableName) {
		switch step {
		case reconcile.StepCreate:
			o.enter(StateCreating)
		case reconcile.StepCopy:
			o.enter(StateCopying)
		}
	}

	o.enter(StateReconciling)
	res, err := rec.Reconcile(ctx)
	if res != nil {
		rep.Dropped = res.Dropped
		rep.Created = res.Created
		rep.Skipped = res.Skipped
		rep.Copied = res.Copied
	}
	if err != nil {
		return rep, err
	}

	if o.opts.InstallOriginTriggers {
		syn := trigger.New(gen, origin, originExec, o.logger)
		syn.Replace = o.opts.ReplaceTriggers
		for _, table := range uniqueTables(res.Origin) {
			o.enter(StateSynthesizingTriggers)
			specs, err := syn.Install(ctx, table)
			for _, s := range specs {
				rep.Triggers = append(rep.Triggers, TriggerRecord{Table: s.Table, Event: s.Event, Name: s.Name, Strategy: s.Strategy})
			}
			if err != nil {
				return rep, err
			}
		}
	}

	if o.opts.DryRun {
		rep.Preflight = preflight.NewAnalyzer().Check(p)
	}
	return rep, nil
}

func (o *Orchestrator) connect(ctx context.Context, ep database.Endpoint, side string) (database.Conn, error) {
	conn, err := o.opts.Connector(ctx, ep)
	if err != nil {
		if core.KindOf(err) == "" {
			err = core.NewError(core.KindConnection, "", "connect "+side, err)
		}
		return nil, err
	}
	o.logger.Info("connected", zap.String("side", side), zap.Stringer("endpoint", ep))
	return conn, nil
}

func (o *Orchestrator) close(conn database.Conn, side string) error {
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return core.NewError(core.KindConnection, "", "close "+side, err)
	}
	return nil
}

func uniqueTables(inv core.Inventory) []core.TableName {
	seen := make(map[core.TableName]struct{}, len(inv))
	out := make([]core.TableName, 0, len(inv))
	for _, t := range inv {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

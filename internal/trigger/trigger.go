// Package trigger installs the replication triggers that keep a destination table in step with
// writes made to the origin after the initial copy.
package trigger

import (
	"context"

	"go.uber.org/zap"

	"dbmirror/internal/core"
	"dbmirror/internal/database"
	"dbmirror/internal/dialect/mysql"
	"dbmirror/internal/plan"
)

// Synthesizer builds and installs the insert, update and delete triggers of a table on the origin.
type Synthesizer struct {
	gen    *mysql.Generator
	origin database.Conn
	exec   *plan.Executor
	logger *zap.Logger

	// Replace drops an existing trigger of the same name before creating it.
	Replace bool
}

// New creates a synthesizer executing through exec, which must target the origin.
func New(gen *mysql.Generator, origin database.Conn, exec *plan.Executor, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{gen: gen, origin: origin, exec: exec, logger: logger}
}

// Build returns the trigger specs for table given its column metadata. Tables with a primary
// key get keyed triggers; the others mirror the whole table on every write.
func (s *Synthesizer) Build(table core.TableName, columns []core.Column) ([]core.TriggerSpec, error) {
	return s.gen.Triggers(table, core.PrimaryKeyColumns(columns))
}

// Install creates the three triggers of table in insert, update, delete order. A failure stops
// the installation; triggers created before it stay installed.
func (s *Synthesizer) Install(ctx context.Context, table core.TableName) ([]core.TriggerSpec, error) {
	cols, err := s.origin.Columns(ctx, table)
	if err != nil {
		return nil, core.NewError(core.KindSchemaIntrospection, table, "read column metadata", err)
	}

	specs, err := s.Build(table, cols)
	if err != nil {
		return nil, core.NewError(core.KindIdentifier, table, "build triggers", err)
	}

	log := s.logger.With(zap.String("table", table))
	installed := make([]core.TriggerSpec, 0, len(specs))
	for _, spec := range specs {
		op := "create " + string(spec.Event) + " trigger"

		drop, err := s.gen.DropTrigger(spec.Name)
		if err != nil {
			return installed, core.NewError(core.KindIdentifier, table, op, err)
		}
		if s.Replace {
			if err := s.exec.Exec(ctx, table, drop, "", core.RiskWarning); err != nil {
				return installed, core.NewError(core.KindTriggerInstall, table, "drop "+string(spec.Event)+" trigger", err)
			}
		}
		if err := s.exec.Exec(ctx, table, spec.SQL, drop, core.RiskInfo); err != nil {
			return installed, core.NewError(core.KindTriggerInstall, table, op, err)
		}

		log.Info("installed trigger",
			zap.String("trigger", spec.Name),
			zap.String("event", string(spec.Event)),
			zap.String("strategy", string(spec.Strategy)),
		)
		installed = append(installed, spec)
	}
	return installed, nil
}

// Package plan records the steps of a sync run in the order they are performed. A run in dry-run
// mode only records; a regular run records what it has executed, so both can be rendered the same way.
package plan

import (
	"strings"

	"dbmirror/internal/core"
)

// Plan struct contains all operations performed (or to be performed) by a sync run.
type Plan struct {
	Operations []core.Operation
}

// AddStatement records a SQL statement for the given endpoint and table.
func (p *Plan) AddStatement(endpoint core.Endpoint, table core.TableName, stmt string, risk core.OperationRisk) {
	p.AddStatementWithRollback(endpoint, table, stmt, "", risk)
}

// AddStatementWithRollback records a SQL statement together with the statement undoing it.
func (p *Plan) AddStatementWithRollback(endpoint core.Endpoint, table core.TableName, up, down string, risk core.OperationRisk) {
	up = strings.TrimSpace(up)
	down = strings.TrimSpace(down)
	if up == "" {
		return
	}
	if risk == "" {
		risk = core.RiskInfo
	}
	p.Operations = append(p.Operations, core.Operation{
		Kind:        core.OperationSQL,
		Endpoint:    endpoint,
		Table:       table,
		SQL:         up,
		RollbackSQL: down,
		Risk:        risk,
	})
}

// AddCopy records a data copy of table from the origin into the destination.
func (p *Plan) AddCopy(table core.TableName, msg string) {
	p.Operations = append(p.Operations, core.Operation{
		Kind:     core.OperationCopy,
		Endpoint: core.EndpointDestination,
		Table:    table,
		SQL:      strings.TrimSpace(msg),
		Risk:     core.RiskInfo,
	})
}

// AddNote records an informational message.
func (p *Plan) AddNote(msg string) {
	if msg = strings.TrimSpace(msg); msg == "" {
		return
	}
	p.Operations = append(p.Operations, core.Operation{Kind: core.OperationNote, SQL: msg, Risk: core.RiskInfo})
}

// MarkRisk raises the risk of every recorded statement whose SQL equals stmt.
func (p *Plan) MarkRisk(stmt string, risk core.OperationRisk) {
	stmt = strings.TrimSpace(stmt)
	for i := range p.Operations {
		op := &p.Operations[i]
		if op.Kind == core.OperationSQL && op.SQL == stmt && riskLevel(risk) > riskLevel(op.Risk) {
			op.Risk = risk
		}
	}
}

// SQLStatements returns the recorded SQL statements in order.
func (p *Plan) SQLStatements() []string {
	return p.filter(func(op core.Operation) bool { return op.Kind == core.OperationSQL }, sqlOf)
}

// StatementsFor returns the SQL statements that run against endpoint.
func (p *Plan) StatementsFor(endpoint core.Endpoint) []string {
	return p.filter(func(op core.Operation) bool {
		return op.Kind == core.OperationSQL && op.Endpoint == endpoint
	}, sqlOf)
}

// RollbackStatements returns the recorded rollback statements in reverse order.
func (p *Plan) RollbackStatements() []string {
	out := p.filter(func(op core.Operation) bool { return op.Kind == core.OperationSQL },
		func(op core.Operation) string { return op.RollbackSQL })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Copies returns the copy messages in order.
func (p *Plan) Copies() []string {
	return p.filter(func(op core.Operation) bool { return op.Kind == core.OperationCopy }, sqlOf)
}

// Notes returns the informational notes in order.
func (p *Plan) Notes() []string {
	return p.filter(func(op core.Operation) bool { return op.Kind == core.OperationNote }, sqlOf)
}

// Destructive returns the statements marked as destructive.
func (p *Plan) Destructive() []string {
	return p.filter(func(op core.Operation) bool {
		return op.Kind == core.OperationSQL && op.Risk == core.RiskDestructive
	}, sqlOf)
}

func sqlOf(op core.Operation) string { return op.SQL }

func (p *Plan) filter(keep func(core.Operation) bool, fieldFn func(core.Operation) string) []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Operations)/2+1)
	for i := range p.Operations {
		op := p.Operations[i]
		if !keep(op) {
			continue
		}
		val := strings.TrimSpace(fieldFn(op))
		if val == "" {
			continue
		}
		out = append(out, val)
	}
	return out
}

func riskLevel(r core.OperationRisk) int {
	switch r {
	case core.RiskDestructive:
		return 2
	case core.RiskWarning:
		return 1
	default:
		return 0
	}
}

package output

import (
	"io"
	"strings"

	"dbmirror/internal/core"
	"dbmirror/internal/plan"
	"dbmirror/internal/preflight"
	"dbmirror/internal/sync"
)

type sqlFormatter struct{}

// FormatReport formats the statements of a run as a SQL script, grouped by the endpoint they
// run against.
func (sqlFormatter) FormatReport(r *sync.Report) (string, error) {
	if r == nil {
		return "", nil
	}

	var sb strings.Builder
	if r.DryRun {
		sb.WriteString("-- dbmirror plan\n")
		sb.WriteString("-- Review before running in production.\n")
	} else {
		sb.WriteString("-- dbmirror executed statements\n")
	}

	writeCommentSection(&sb, "PREFLIGHT WARNINGS", preflightMessages(r.Preflight))
	writeCommentSection(&sb, "NOTES", r.Plan.Notes())

	ops := sqlOperations(r.Plan)
	if len(ops) == 0 {
		sb.WriteString("\n-- No SQL statements generated.\n")
		return sb.String(), nil
	}

	writeEndpointSection(&sb, "DESTINATION "+r.Destination, ops, core.EndpointDestination, r.Plan.Copies())
	writeEndpointSection(&sb, "ORIGIN "+r.Origin, ops, core.EndpointOrigin, nil)

	if rb := r.Plan.RollbackStatements(); len(rb) > 0 {
		sb.WriteString("\n-- ROLLBACK SQL (run separately)\n")
		writeRollbackAsComments(&sb, rb)
	}
	return sb.String(), nil
}

func writeEndpointSection(sb *strings.Builder, title string, ops []core.Operation, endpoint core.Endpoint, copies []string) {
	var selected []core.Operation
	for _, op := range ops {
		if op.Endpoint == endpoint {
			selected = append(selected, op)
		}
	}
	if len(selected) == 0 && len(copies) == 0 {
		return
	}

	sb.WriteString("\n-- " + title + "\n")
	for _, op := range selected {
		writeRiskComment(sb, op)
		sb.WriteString(terminate(op.SQL))
		sb.WriteString("\n")
	}
	for _, c := range copies {
		sb.WriteString("-- " + c + "\n")
	}
}

func writeRiskComment(sb *strings.Builder, op core.Operation) {
	if op.Risk != "" && op.Risk != core.RiskInfo {
		sb.WriteString("-- [" + string(op.Risk) + "]\n")
	}
}

// FormatRollbackSQL formats the rollback statements of a plan as SQL.
func FormatRollbackSQL(p *plan.Plan) string {
	var sb strings.Builder
	sb.WriteString("-- dbmirror rollback\n")
	sb.WriteString("-- Removes the tables and triggers created by the run. Dropped tables cannot be restored.\n")

	rb := p.RollbackStatements()
	if len(rb) == 0 {
		sb.WriteString("\n-- No rollback statements generated.\n")
		return sb.String()
	}

	sb.WriteString("\n-- SQL\n")
	for _, stmt := range normalizeStatements(rb) {
		sb.WriteString(stmt)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteRollback writes formatted rollback SQL to the given writer.
func WriteRollback(p *plan.Plan, w io.Writer) error {
	_, err := io.WriteString(w, FormatRollbackSQL(p))
	return err
}

func sqlOperations(p *plan.Plan) []core.Operation {
	if p == nil {
		return nil
	}
	var ops []core.Operation
	for _, op := range p.Operations {
		if op.Kind == core.OperationSQL && op.SQL != "" {
			ops = append(ops, op)
		}
	}
	return ops
}

func preflightMessages(r *preflight.Result) []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, "["+string(w.Level)+"] "+w.Message+": "+firstLine(w.SQL))
	}
	return out
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func writeRollbackAsComments(sb *strings.Builder, rollback []string) {
	for _, stmt := range rollback {
		for _, line := range splitCommentLines(stmt) {
			if line == "" {
				continue
			}
			sb.WriteString("-- ")
			sb.WriteString(line)
			if !strings.HasSuffix(line, ";") {
				sb.WriteString(";")
			}
			sb.WriteString("\n")
		}
	}
}

package mysql

import (
	"fmt"
	"strings"

	"dbmirror/internal/core"
)

// TriggerName returns the name used for the trigger of table on event, e.g. users_insert.
func TriggerName(table string, event core.TriggerEvent) string {
	return table + "_" + string(event)
}

// Triggers builds the insert, update and delete replication triggers for table. With a non-empty
// keys list the keyed strategy is used, otherwise the whole destination table is mirrored.
// The triggers live on the origin and write into the destination database.
func (g *Generator) Triggers(table string, keys []string) ([]core.TriggerSpec, error) {
	names := []string{g.Origin, g.Destination, table}
	names = append(names, keys...)
	for _, ev := range core.TriggerEvents() {
		names = append(names, TriggerName(table, ev))
	}
	if err := g.Check(names...); err != nil {
		return nil, err
	}

	strategy := core.StrategyFullMirror
	if len(keys) > 0 {
		strategy = core.StrategyKeyed
	}

	specs := make([]core.TriggerSpec, 0, 3)
	for _, ev := range core.TriggerEvents() {
		var body []string
		if strategy == core.StrategyKeyed {
			body = g.keyedBody(table, keys, ev)
		} else {
			body = g.mirrorBody(table)
		}
		name := TriggerName(table, ev)
		specs = append(specs, core.TriggerSpec{
			Table:    table,
			Event:    ev,
			Name:     name,
			Strategy: strategy,
			SQL:      g.createTrigger(name, table, ev, body),
		})
	}
	return specs, nil
}

// DropTrigger returns the statement removing a trigger from the origin if it exists.
func (g *Generator) DropTrigger(name string) (string, error) {
	if err := g.Check(g.Origin, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TRIGGER IF EXISTS %s", g.Qualified(g.Origin, name)), nil
}

func (g *Generator) createTrigger(name, table string, ev core.TriggerEvent, body []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TRIGGER %s AFTER %s ON %s\nFOR EACH ROW\nBEGIN\n",
		g.QuoteIdentifier(name), strings.ToUpper(string(ev)), g.Qualified(g.Origin, table))
	for _, stmt := range body {
		sb.WriteString("  ")
		sb.WriteString(stmt)
		sb.WriteString(";\n")
	}
	sb.WriteString("END")
	return sb.String()
}

func (g *Generator) keyedBody(table string, keys []string, ev core.TriggerEvent) []string {
	dst := g.Qualified(g.Destination, table)
	src := g.Qualified(g.Origin, table)
	copyNew := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s WHERE %s", dst, src, g.keyPredicate(keys, "NEW"))
	deleteOld := fmt.Sprintf("DELETE FROM %s WHERE %s", dst, g.keyPredicate(keys, "OLD"))

	switch ev {
	case core.TriggerInsert:
		return []string{copyNew}
	case core.TriggerUpdate:
		return []string{deleteOld, copyNew}
	default:
		return []string{deleteOld}
	}
}

// mirrorBody empties the destination table and copies every origin row. DELETE is used instead
// of TRUNCATE because TRUNCATE commits implicitly and is rejected inside triggers.
func (g *Generator) mirrorBody(table string) []string {
	dst := g.Qualified(g.Destination, table)
	src := g.Qualified(g.Origin, table)
	return []string{
		fmt.Sprintf("DELETE FROM %s", dst),
		fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", dst, src),
	}
}

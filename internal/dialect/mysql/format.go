package mysql

import (
	"strings"
)

// quoteList renders `a`, `b`, `c` with one entry per name, in order.
func (g *Generator) quoteList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = g.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func (g *Generator) formatColumns(cols []string) string {
	return "(" + g.quoteList(cols) + ")"
}

// keyPredicate renders `k1` = REF.`k1` AND `k2` = REF.`k2`.
func (g *Generator) keyPredicate(keys []string, ref string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		q := g.QuoteIdentifier(k)
		parts = append(parts, q+" = "+ref+"."+q)
	}
	return strings.Join(parts, " AND ")
}

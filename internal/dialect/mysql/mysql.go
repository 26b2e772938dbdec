// Package mysql provides the MySQL statements a sync run issues: qualified CREATE/DROP TABLE,
// parameterized INSERT for data copy, and the replication trigger bodies. Identifiers that
// end up interpolated into SQL go through an allowlist check before being quoted.
package mysql

import (
	"fmt"
	"regexp"
	"strings"

	"dbmirror/internal/core"
)

const mysqlMaxIdentLen = 64

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// IdentifierError is returned when a table, column, database or trigger name fails the allowlist.
type IdentifierError struct {
	Name   string
	Reason string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("unsafe identifier %q: %s", e.Name, e.Reason)
}

// ValidateIdentifier checks that name only contains ASCII letters, digits and underscores and
// fits MySQL's identifier length limit.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return &IdentifierError{Name: name, Reason: "identifier is empty"}
	case len(name) > mysqlMaxIdentLen:
		return &IdentifierError{Name: name, Reason: fmt.Sprintf("longer than %d characters", mysqlMaxIdentLen)}
	case !identifierPattern.MatchString(name):
		return &IdentifierError{Name: name, Reason: "only letters, digits and underscore are allowed"}
	}
	return nil
}

// Generator is a small stateful builder for the statements of one sync run.
// Origin and Destination are the database names used to qualify table references.
type Generator struct {
	Origin      string
	Destination string

	// AllowUnsafeIdentifiers skips the allowlist check. Identifiers are still quoted.
	AllowUnsafeIdentifiers bool
}

// NewMySQLGenerator initializes a generator for the given origin and destination databases.
func NewMySQLGenerator(origin, destination string) *Generator {
	return &Generator{Origin: origin, Destination: destination}
}

// Check validates every name unless unsafe identifiers are allowed.
func (g *Generator) Check(names ...string) error {
	if g.AllowUnsafeIdentifiers {
		return nil
	}
	for _, n := range names {
		if err := ValidateIdentifier(n); err != nil {
			return err
		}
	}
	return nil
}

// QuoteIdentifier is a function used for quote identification inside an SQL dialect.
// The name is quoted exactly as given, surrounding whitespace included.
func (g *Generator) QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, "`", "``")
	return "`" + name + "`"
}

// Qualified returns `schema`.`table`.
func (g *Generator) Qualified(schema, table string) string {
	return g.QuoteIdentifier(schema) + "." + g.QuoteIdentifier(table)
}

// CreateTable prefixes an already normalized definition body (the text following CREATE TABLE)
// with a destination-qualified CREATE TABLE. The table name inside body is kept as captured.
func (g *Generator) CreateTable(table string, body core.TableDefinition) (string, error) {
	if err := g.Check(g.Destination, table); err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE TABLE %s.%s", g.QuoteIdentifier(g.Destination), strings.TrimLeft(string(body), " \t\r\n")), nil
}

// DropTable returns the statement removing table from the destination.
func (g *Generator) DropTable(table string) (string, error) {
	if err := g.Check(g.Destination, table); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TABLE %s", g.Qualified(g.Destination, table)), nil
}

// Insert returns a parameterized INSERT into the destination table with one placeholder per column.
func (g *Generator) Insert(table string, columns []string) (string, error) {
	if err := g.Check(append([]string{g.Destination, table}, columns...)...); err != nil {
		return "", err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s %s VALUES (%s)",
		g.Qualified(g.Destination, table), g.formatColumns(columns), placeholders), nil
}

// SelectAll returns a forward-only read of every origin row with columns in the given order.
func (g *Generator) SelectAll(table string, columns []string) (string, error) {
	if err := g.Check(append([]string{g.Origin, table}, columns...)...); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s", g.quoteList(columns), g.Qualified(g.Origin, table)), nil
}

// Package output provides a set of formatters for sync reports.
// Reports can be rendered for humans, as JSON, as a compact summary or as the SQL script of
// the statements a run executed (or would execute, in dry-run mode).
package output

import (
	"fmt"
	"io"
	"strings"

	"dbmirror/internal/sync"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatHuman   Format = "human"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
	FormatSQL     Format = "sql"
)

// Formatter is an interface for formatting sync reports.
type Formatter interface {
	FormatReport(*sync.Report) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to human format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	case FormatSQL:
		return sqlFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'human', 'json', 'summary', or 'sql'", name)
	}
}

// WriteReport formats r with f and writes it to w.
func WriteReport(w io.Writer, f Formatter, r *sync.Report) error {
	content, err := f.FormatReport(r)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func normalizeStatements(stmts []string) []string {
	var out []string
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, terminate(stmt))
	}
	return out
}

// terminate appends the statement terminator. Trigger bodies end with END, which is closed
// with a custom delimiter so the script can be replayed with the mysql client.
func terminate(stmt string) string {
	if strings.HasPrefix(strings.ToUpper(stmt), "CREATE TRIGGER") {
		return "DELIMITER $$\n" + stmt + "$$\nDELIMITER ;"
	}
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	return stmt
}

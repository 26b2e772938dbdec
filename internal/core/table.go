// Package core contains the single source of truth for the data moved between an origin and a
// destination database during a sync run: table inventories, captured definitions, rows,
// column metadata and trigger specifications.
package core

import (
	"database/sql"
	"strings"
)

// TableName identifies a table inside one database.
type TableName = string

// Inventory is the list of base tables of one database, ordered by name.
type Inventory []TableName

// TableDefinition is the DDL text of a table as captured from SHOW CREATE TABLE.
type TableDefinition string

// PrimaryKeyMarker is the value of the Key column reported by SHOW COLUMNS for primary key columns.
const PrimaryKeyMarker = "PRI"

// Column contains the metadata of a single table column. Extra holds the server's EXTRA
// attribute, e.g. auto_increment or VIRTUAL GENERATED.
type Column struct {
	Name  string
	Key   string
	Extra string
}

// IsPrimaryKey reports whether the column carries the primary key marker.
func (c Column) IsPrimaryKey() bool {
	return strings.EqualFold(strings.TrimSpace(c.Key), PrimaryKeyMarker)
}

// IsGenerated reports whether the server computes the column value. Such columns cannot be
// written by an INSERT.
func (c Column) IsGenerated() bool {
	extra := strings.ToUpper(c.Extra)
	return strings.Contains(extra, "VIRTUAL GENERATED") || strings.Contains(extra, "STORED GENERATED")
}

// ColumnNames returns the column names in table order.
func ColumnNames(cols []Column) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}

// WritableColumnNames returns the names of the columns an INSERT may set, in table order.
func WritableColumnNames(cols []Column) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		if !c.IsGenerated() {
			names = append(names, c.Name)
		}
	}
	return names
}

// PrimaryKeyColumns returns the names of the columns marked as primary key, in table order.
// An empty result means the table has no primary key.
func PrimaryKeyColumns(cols []Column) []string {
	var keys []string
	for _, c := range cols {
		if c.IsPrimaryKey() {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// Row is one record read from the origin. Values are kept in their textual form and
// follow the order of Columns.
type Row struct {
	Columns []string
	Values  []sql.NullString
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := Row{
		Columns: make([]string, len(r.Columns)),
		Values:  make([]sql.NullString, len(r.Values)),
	}
	copy(out.Columns, r.Columns)
	copy(out.Values, r.Values)
	return out
}

// Args converts the row values into statement arguments. NULL values are bound as nil,
// everything else as its string representation.
func (r Row) Args() []any {
	args := make([]any, len(r.Values))
	for i, v := range r.Values {
		if v.Valid {
			args[i] = v.String
		}
	}
	return args
}

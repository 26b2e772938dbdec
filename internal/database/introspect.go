package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dbmirror/internal/core"
)

func (m *MySQL) ListTables(ctx context.Context) (core.Inventory, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, describe(err)
	}
	defer rows.Close()

	var tables core.Inventory
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func (m *MySQL) ShowCreateTable(ctx context.Context, table string) (core.TableDefinition, error) {
	// Identifiers cannot be bound as parameters. The name is quoted here; the reconciler checks it
	// against the identifier allowlist before asking for the definition.
	query := fmt.Sprintf("SHOW CREATE TABLE `%s`", strings.ReplaceAll(table, "`", "``"))

	var name, ddl string
	if err := m.db.QueryRowContext(ctx, query).Scan(&name, &ddl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no definition returned for %s", table)
		}
		return "", describe(err)
	}
	return core.TableDefinition(ddl), nil
}

func (m *MySQL) Columns(ctx context.Context, table string) ([]core.Column, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.column_key,
			c.extra
		FROM information_schema.columns c
		WHERE c.table_schema = DATABASE() AND c.table_name = ?
		ORDER BY c.ordinal_position
	`, table)
	if err != nil {
		return nil, describe(err)
	}
	defer rows.Close()

	var cols []core.Column
	for rows.Next() {
		var name, colKey, extra sql.NullString
		if err := rows.Scan(&name, &colKey, &extra); err != nil {
			return nil, err
		}
		cols = append(cols, core.Column{Name: name.String, Key: colKey.String, Extra: extra.String})
	}

	return cols, rows.Err()
}

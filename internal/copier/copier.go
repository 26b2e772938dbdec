// Package copier moves the rows of one table from the origin into the destination.
package copier

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"dbmirror/internal/core"
	"dbmirror/internal/database"
	"dbmirror/internal/dialect/mysql"
	"dbmirror/internal/normalize"
)

// Copier streams rows with a forward-only cursor on the origin into a prepared insert on
// the destination. Values are read as text, sanitized and bound as parameters.
type Copier struct {
	gen         *mysql.Generator
	origin      database.Conn
	destination database.Conn
	fallback    string
	logger      *zap.Logger
}

// New creates a copier. An empty fallback uses normalize.DefaultFallbackDate.
func New(gen *mysql.Generator, origin, destination database.Conn, fallback string, logger *zap.Logger) *Copier {
	if fallback == "" {
		fallback = normalize.DefaultFallbackDate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Copier{
		gen:         gen,
		origin:      origin,
		destination: destination,
		fallback:    fallback,
		logger:      logger,
	}
}

// Copy transfers every row of table and returns the number of rows inserted. Generated columns
// are left out of both the read and the insert. The first failure
// stops the copy; rows inserted before it stay in the destination.
func (c *Copier) Copy(ctx context.Context, table core.TableName) (int64, error) {
	log := c.logger.With(zap.String("table", table))

	cols, err := c.origin.Columns(ctx, table)
	if err != nil {
		return 0, core.NewError(core.KindDataCopy, table, "read column metadata", err)
	}
	// Generated columns are computed by the destination server and reject explicit values.
	names := core.WritableColumnNames(cols)
	if len(names) == 0 {
		log.Debug("table has no writable columns, nothing to copy")
		return 0, nil
	}

	insert, err := c.gen.Insert(table, names)
	if err != nil {
		return 0, core.NewError(core.KindIdentifier, table, "build insert", err)
	}
	selectAll, err := c.gen.SelectAll(table, names)
	if err != nil {
		return 0, core.NewError(core.KindIdentifier, table, "build select", err)
	}

	stmt, err := c.destination.PrepareContext(ctx, insert)
	if err != nil {
		return 0, core.NewError(core.KindDataCopy, table, "prepare insert", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn("failed to close insert statement", zap.Error(closeErr))
		}
	}()

	rows, err := c.origin.QueryContext(ctx, selectAll)
	if err != nil {
		return 0, core.NewError(core.KindDataCopy, table, "select rows", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn("failed to close origin cursor", zap.Error(closeErr))
		}
	}()

	values := make([]sql.NullString, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}

	var copied int64
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return copied, core.NewError(core.KindDataCopy, table, fmt.Sprintf("scan row %d", copied+1), err)
		}
		row := normalize.Row(core.Row{Columns: names, Values: values}, c.fallback)
		if _, err := stmt.ExecContext(ctx, row.Args()...); err != nil {
			return copied, core.NewError(core.KindDataCopy, table, fmt.Sprintf("insert row %d", copied+1), err)
		}
		copied++
	}
	if err := rows.Err(); err != nil {
		return copied, core.NewError(core.KindDataCopy, table, "iterate rows", err)
	}

	log.Info("copied table data", zap.Int64("rows", copied))
	return copied, nil
}

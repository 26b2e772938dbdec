package core

import (
	"errors"
	"strings"
)

// ErrorKind classifies the failures a sync run can surface.
type ErrorKind string

const (
	KindConnection          ErrorKind = "ConnectionError"
	KindSchemaIntrospection ErrorKind = "SchemaIntrospectionError"
	KindDDLExecution        ErrorKind = "DDLExecutionError"
	KindDataCopy            ErrorKind = "DataCopyError"
	KindTriggerInstall      ErrorKind = "TriggerInstallError"
	KindIdentifier          ErrorKind = "IdentifierError"
	KindConfig              ErrorKind = "ConfigError"
)

// SyncError carries the kind of failure together with the table and operation it happened on.
// All sync errors are fatal for the current run.
type SyncError struct {
	Kind  ErrorKind
	Table TableName
	Op    string
	Err   error
}

// NewError wraps err with the given kind, table and operation.
func NewError(kind ErrorKind, table TableName, op string, err error) *SyncError {
	return &SyncError{Kind: kind, Table: table, Op: op, Err: err}
}

func (e *SyncError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Op != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Op)
	}
	if e.Table != "" {
		sb.WriteString(" (table ")
		sb.WriteString(e.Table)
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first SyncError found in err's chain, or an empty kind.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

package core

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryKeyColumns(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
		want []string
	}{
		{
			name: "no columns",
			cols: nil,
			want: nil,
		},
		{
			name: "single id key",
			cols: []Column{{Name: "id", Key: "PRI"}, {Name: "name", Key: ""}},
			want: []string{"id"},
		},
		{
			name: "composite key keeps table order",
			cols: []Column{{Name: "a", Key: "PRI"}, {Name: "b", Key: "MUL"}, {Name: "c", Key: "pri"}},
			want: []string{"a", "c"},
		},
		{
			name: "unique key is not primary",
			cols: []Column{{Name: "email", Key: "UNI"}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryKeyColumns(tt.cols))
		})
	}
}

func TestColumnNames(t *testing.T) {
	cols := []Column{{Name: "id"}, {Name: "created_at"}, {Name: "name"}}
	assert.Equal(t, []string{"id", "created_at", "name"}, ColumnNames(cols))
	assert.Empty(t, ColumnNames(nil))
}

func TestWritableColumnNamesSkipsGenerated(t *testing.T) {
	cols := []Column{
		{Name: "id", Key: PrimaryKeyMarker, Extra: "auto_increment"},
		{Name: "email"},
		{Name: "domain", Extra: "VIRTUAL GENERATED"},
		{Name: "email_lower", Extra: "STORED GENERATED"},
		{Name: "updated_at", Extra: "DEFAULT_GENERATED on update CURRENT_TIMESTAMP"},
	}
	assert.Equal(t, []string{"id", "email", "updated_at"}, WritableColumnNames(cols))
	assert.True(t, cols[2].IsGenerated())
	assert.True(t, cols[3].IsGenerated())
	assert.False(t, cols[4].IsGenerated(), "DEFAULT_GENERATED columns accept explicit values")
	assert.Empty(t, WritableColumnNames(nil))
}

func TestRowArgsBindsNullAsNil(t *testing.T) {
	row := Row{
		Columns: []string{"id", "deleted_at"},
		Values:  []sql.NullString{{String: "1", Valid: true}, {}},
	}
	args := row.Args()
	require.Len(t, args, 2)
	assert.Equal(t, "1", args[0])
	assert.Nil(t, args[1])
}

func TestRowCloneIsIndependent(t *testing.T) {
	row := Row{
		Columns: []string{"id"},
		Values:  []sql.NullString{{String: "1", Valid: true}},
	}
	clone := row.Clone()
	clone.Values[0].String = "2"
	assert.Equal(t, "1", row.Values[0].String)
}

func TestSyncErrorMessageAndKind(t *testing.T) {
	cause := errors.New("Error 1142: CREATE command denied")
	err := NewError(KindDDLExecution, "users", "create table", cause)

	assert.Equal(t, "DDLExecutionError: create table (table users): Error 1142: CREATE command denied", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("sync failed: %w", err)
	assert.Equal(t, KindDDLExecution, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}

func TestSyncErrorWithoutTable(t *testing.T) {
	err := NewError(KindConnection, "", "connect origin", errors.New("dial tcp: refused"))
	assert.Equal(t, "ConnectionError: connect origin: dial tcp: refused", err.Error())
}

package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dbmirror/internal/core"
)

func TestInventories(t *testing.T) {
	tests := []struct {
		name        string
		origin      core.Inventory
		destination core.Inventory
		want        *InventoryDiff
	}{
		{
			name:        "both empty",
			origin:      nil,
			destination: nil,
			want:        &InventoryDiff{},
		},
		{
			name:        "origin A B destination B C",
			origin:      core.Inventory{"A", "B"},
			destination: core.Inventory{"B", "C"},
			want: &InventoryDiff{
				Missing:  []core.TableName{"A"},
				Orphaned: []core.TableName{"C"},
				Shared:   []core.TableName{"B"},
			},
		},
		{
			name:        "orphans sorted regardless of destination order",
			origin:      core.Inventory{"users"},
			destination: core.Inventory{"zeta", "users", "alpha", "mid"},
			want: &InventoryDiff{
				Orphaned: []core.TableName{"alpha", "mid", "zeta"},
				Shared:   []core.TableName{"users"},
			},
		},
		{
			name:        "missing keeps origin order",
			origin:      core.Inventory{"orders", "customers", "addresses"},
			destination: nil,
			want: &InventoryDiff{
				Missing: []core.TableName{"orders", "customers", "addresses"},
			},
		},
		{
			name:        "names are case sensitive",
			origin:      core.Inventory{"Users"},
			destination: core.Inventory{"users"},
			want: &InventoryDiff{
				Missing:  []core.TableName{"Users"},
				Orphaned: []core.TableName{"users"},
			},
		},
		{
			name:        "duplicate origin entries counted once",
			origin:      core.Inventory{"a", "a"},
			destination: nil,
			want:        &InventoryDiff{Missing: []core.TableName{"a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Inventories(tt.origin, tt.destination))
		})
	}
}

func TestInventoryDiffIsEmpty(t *testing.T) {
	assert.True(t, (*InventoryDiff)(nil).IsEmpty())
	assert.True(t, (&InventoryDiff{Shared: []core.TableName{"a"}}).IsEmpty())
	assert.False(t, (&InventoryDiff{Missing: []core.TableName{"a"}}).IsEmpty())
}

func TestInventoryDiffString(t *testing.T) {
	d := Inventories(core.Inventory{"A", "B"}, core.Inventory{"B", "C"})
	assert.Equal(t, "- C\n+ A\n", d.String())
	assert.Equal(t, "No table changes detected.\n", Inventories(nil, nil).String())
}

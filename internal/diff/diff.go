// Package diff compares the table inventories of the origin and the destination.
package diff

import (
	"fmt"
	"slices"
	"strings"

	"dbmirror/internal/core"
)

// InventoryDiff represents the differences between two table inventories.
type InventoryDiff struct {
	// Missing tables exist in the origin only, in origin enumeration order.
	Missing []core.TableName `json:"missing,omitempty"`
	// Orphaned tables exist in the destination only, sorted alphabetically.
	Orphaned []core.TableName `json:"orphaned,omitempty"`
	// Shared tables exist on both sides, in origin enumeration order.
	Shared []core.TableName `json:"shared,omitempty"`
}

// Inventories compares origin against destination. Orphaned tables are sorted so that
// drop order never depends on how the destination enumerates its tables.
func Inventories(origin, destination core.Inventory) *InventoryDiff {
	inOrigin := make(map[core.TableName]struct{}, len(origin))
	for _, t := range origin {
		inOrigin[t] = struct{}{}
	}
	inDestination := make(map[core.TableName]struct{}, len(destination))
	for _, t := range destination {
		inDestination[t] = struct{}{}
	}

	d := &InventoryDiff{}
	seen := make(map[core.TableName]struct{}, len(origin))
	for _, t := range origin {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := inDestination[t]; ok {
			d.Shared = append(d.Shared, t)
		} else {
			d.Missing = append(d.Missing, t)
		}
	}

	for t := range inDestination {
		if _, ok := inOrigin[t]; !ok {
			d.Orphaned = append(d.Orphaned, t)
		}
	}
	slices.Sort(d.Orphaned)

	return d
}

// IsEmpty reports whether nothing has to be created or dropped.
func (d *InventoryDiff) IsEmpty() bool {
	return d == nil || (len(d.Missing) == 0 && len(d.Orphaned) == 0)
}

func (d *InventoryDiff) String() string {
	if d.IsEmpty() {
		return "No table changes detected.\n"
	}
	var sb strings.Builder
	for _, t := range d.Orphaned {
		fmt.Fprintf(&sb, "- %s\n", t)
	}
	for _, t := range d.Missing {
		fmt.Fprintf(&sb, "+ %s\n", t)
	}
	return sb.String()
}

package output

import (
	"fmt"
	"strings"
	"time"

	"dbmirror/internal/sync"
)

type humanFormatter struct{}

// FormatReport formats a sync report in human-readable format.
func (humanFormatter) FormatReport(r *sync.Report) (string, error) {
	if r == nil {
		return "", nil
	}

	var sb strings.Builder
	mode := "sync"
	if r.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(&sb, "%s: %s -> %s\n", mode, r.Origin, r.Destination)

	if len(r.Dropped) > 0 {
		fmt.Fprintf(&sb, "\nDropped tables (%d):\n", len(r.Dropped))
		for _, t := range r.Dropped {
			fmt.Fprintf(&sb, "  - %s\n", t)
		}
	}
	if len(r.Created) > 0 {
		fmt.Fprintf(&sb, "\nCreated tables (%d):\n", len(r.Created))
		for _, t := range r.Created {
			if r.DryRun {
				fmt.Fprintf(&sb, "  + %s\n", t)
				continue
			}
			fmt.Fprintf(&sb, "  + %s (%d rows copied)\n", t, r.Copied[t])
		}
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&sb, "\nAlready present (%d):\n", len(r.Skipped))
		for _, t := range r.Skipped {
			fmt.Fprintf(&sb, "  = %s\n", t)
		}
	}
	if len(r.Triggers) > 0 {
		fmt.Fprintf(&sb, "\nTriggers (%d):\n", len(r.Triggers))
		for _, tr := range r.Triggers {
			fmt.Fprintf(&sb, "  * %s on %s (%s)\n", tr.Name, tr.Table, tr.Strategy)
		}
	}
	if len(r.Dropped) == 0 && len(r.Created) == 0 && len(r.Triggers) == 0 {
		sb.WriteString("\nNo table changes.\n")
	}

	if r.Preflight != nil && len(r.Preflight.Warnings) > 0 {
		sb.WriteString("\nPreflight warnings:\n")
		for _, w := range r.Preflight.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", w.Level, w.Message)
			fmt.Fprintf(&sb, "         %s\n", firstLine(w.SQL))
		}
	}

	states := make([]string, 0, len(r.States))
	for _, s := range r.States {
		states = append(states, string(s))
	}
	fmt.Fprintf(&sb, "\nStates: %s\n", strings.Join(states, " -> "))
	fmt.Fprintf(&sb, "Result: %s in %s\n", r.Final, r.Duration.Round(time.Millisecond))
	if r.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", r.Error)
	}
	return sb.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

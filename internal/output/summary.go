package output

import (
	"fmt"
	"strings"

	"dbmirror/internal/core"
	"dbmirror/internal/sync"
)

type summaryFormatter struct{}

// FormatReport formats a sync report as a compact summary.
// Example output:
//
//	Sync Summary
//	============
//
//	Tables:    +2, -1, =4
//	Rows:      1200
//	Triggers:  18 (keyed 15, full-mirror 3)
//	Result:    Done
func (summaryFormatter) FormatReport(r *sync.Report) (string, error) {
	if r == nil {
		return "No sync report.\n", nil
	}

	var sb strings.Builder
	title := "Sync Summary"
	if r.DryRun {
		title = "Sync Plan Summary"
	}
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	fmt.Fprintf(&sb, "Tables:    +%d, -%d, =%d\n", len(r.Created), len(r.Dropped), len(r.Skipped))
	if !r.DryRun {
		fmt.Fprintf(&sb, "Rows:      %d\n", r.RowsCopied())
	}

	keyed, mirror := countStrategies(r.Triggers)
	fmt.Fprintf(&sb, "Triggers:  %d (keyed %d, full-mirror %d)\n", len(r.Triggers), keyed, mirror)

	if r.Preflight != nil && len(r.Preflight.Warnings) > 0 {
		fmt.Fprintf(&sb, "Warnings:  %d\n", len(r.Preflight.Warnings))
	}
	fmt.Fprintf(&sb, "Result:    %s\n", r.Final)
	if r.Error != "" {
		fmt.Fprintf(&sb, "Error:     %s\n", r.Error)
	}
	return sb.String(), nil
}

func countStrategies(triggers []sync.TriggerRecord) (keyed, mirror int) {
	for _, t := range triggers {
		switch t.Strategy {
		case core.StrategyKeyed:
			keyed++
		case core.StrategyFullMirror:
			mirror++
		}
	}
	return
}

package output

import (
	"encoding/json"

	"dbmirror/internal/core"
	"dbmirror/internal/preflight"
	"dbmirror/internal/sync"
)

type jsonFormatter struct{}

type reportSummary struct {
	Dropped       int   `json:"dropped"`
	Created       int   `json:"created"`
	Skipped       int   `json:"skipped"`
	RowsCopied    int64 `json:"rowsCopied"`
	Triggers      int   `json:"triggers"`
	SQLStatements int   `json:"sqlStatements"`
}

type reportPayload struct {
	Format      string                   `json:"format"`
	Origin      string                   `json:"origin"`
	Destination string                   `json:"destination"`
	DryRun      bool                     `json:"dryRun"`
	Summary     reportSummary            `json:"summary"`
	Dropped     []core.TableName         `json:"dropped,omitempty"`
	Created     []core.TableName         `json:"created,omitempty"`
	Skipped     []core.TableName         `json:"skipped,omitempty"`
	Copied      map[core.TableName]int64 `json:"copied,omitempty"`
	Triggers    []sync.TriggerRecord     `json:"triggers,omitempty"`
	SQL         []string                 `json:"sql,omitempty"`
	Rollback    []string                 `json:"rollback,omitempty"`
	Preflight   *preflight.Result        `json:"preflight,omitempty"`
	States      []sync.State             `json:"states"`
	Final       sync.State               `json:"final"`
	Error       string                   `json:"error,omitempty"`
	DurationMS  int64                    `json:"durationMs"`
}

func (jsonFormatter) FormatReport(r *sync.Report) (string, error) {
	payload := reportPayload{Format: string(FormatJSON)}
	if r != nil {
		sql := normalizeStatements(r.Plan.SQLStatements())
		payload.Origin = r.Origin
		payload.Destination = r.Destination
		payload.DryRun = r.DryRun
		payload.Dropped = r.Dropped
		payload.Created = r.Created
		payload.Skipped = r.Skipped
		payload.Copied = r.Copied
		payload.Triggers = r.Triggers
		payload.SQL = sql
		payload.Rollback = normalizeStatements(r.Plan.RollbackStatements())
		payload.Preflight = r.Preflight
		payload.States = r.States
		payload.Final = r.Final
		payload.Error = r.Error
		payload.DurationMS = r.Duration.Milliseconds()
		payload.Summary = reportSummary{
			Dropped:       len(r.Dropped),
			Created:       len(r.Created),
			Skipped:       len(r.Skipped),
			RowsCopied:    r.RowsCopied(),
			Triggers:      len(r.Triggers),
			SQLStatements: len(sql),
		}
	}
	return marshalJSON(payload)
}

func marshalJSON(payload reportPayload) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// Package preflight classifies the statements of a sync plan before they reach a server.
// Statements are parsed with TiDB's parser; the ones it does not understand (triggers among
// them) fall back to keyword matching.
package preflight

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // required to register TiDB parser driver implementations

	"dbmirror/internal/core"
	"dbmirror/internal/plan"
)

// Level is the severity of a warning.
type Level string

const (
	LevelCaution Level = "CAUTION"
	LevelDanger  Level = "DANGER"
)

// Warning contains the level of a warning, its message and the statement it refers to.
type Warning struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	SQL     string `json:"sql"`
}

// Result contains the warnings and transactionality info of a list of statements.
type Result struct {
	Warnings        []Warning `json:"warnings,omitempty"`
	IsTransactional bool      `json:"transactional"`
	NonTxReasons    []string  `json:"nonTransactionalReasons,omitempty"`
}

// HasDestructive reports whether any statement would delete data.
func (r *Result) HasDestructive() bool {
	if r == nil {
		return false
	}
	for _, w := range r.Warnings {
		if w.Level == LevelDanger {
			return true
		}
	}
	return false
}

var implicitCommitKeywords = []string{
	"CREATE TRIGGER",
	"DROP TRIGGER",
	"CREATE VIEW",
	"DROP VIEW",
	"CREATE PROCEDURE",
	"DROP PROCEDURE",
	"CREATE FUNCTION",
	"DROP FUNCTION",
	"CREATE EVENT",
	"DROP EVENT",
}

// Analysis contains the classification of a single statement.
type Analysis struct {
	StatementType     string
	IsBlocking        bool
	BlockingReasons   []string
	IsDestructive     bool
	DestructiveReason string
	IsTransactionSafe bool
	TxUnsafeReason    string
}

// Analyzer uses TiDB's AST parser for statement classification. It is not safe for concurrent use.
type Analyzer struct {
	parser *parser.Parser
}

// NewAnalyzer creates a new AST-based statement analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{parser: parser.New()}
}

// Analyze parses a single SQL statement and returns its classification.
func (a *Analyzer) Analyze(sql string) *Analysis {
	nodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil || len(nodes) == 0 {
		analysis := &Analysis{IsTransactionSafe: true}
		a.analyzeOther(analysis, sql)
		return analysis
	}
	return a.analyzeNode(nodes[0], sql)
}

// AnalyzeStatements classifies every statement and collects the warnings.
func (a *Analyzer) AnalyzeStatements(statements []string) *Result {
	result := &Result{IsTransactional: true}
	for _, stmt := range statements {
		analysis := a.Analyze(stmt)
		for _, reason := range analysis.BlockingReasons {
			result.Warnings = append(result.Warnings, Warning{
				Level:   LevelCaution,
				Message: reason,
				SQL:     stmt,
			})
		}
		if analysis.IsDestructive {
			result.Warnings = append(result.Warnings, Warning{
				Level:   LevelDanger,
				Message: analysis.DestructiveReason,
				SQL:     stmt,
			})
		}
		if !analysis.IsTransactionSafe {
			result.IsTransactional = false
			result.NonTxReasons = append(result.NonTxReasons, fmt.Sprintf("%s: %s", analysis.TxUnsafeReason, firstLine(stmt)))
		}
	}
	return result
}

// Check analyzes the statements recorded in p and raises the risk of the ones that would
// block or delete data.
func (a *Analyzer) Check(p *plan.Plan) *Result {
	statements := p.SQLStatements()
	result := a.AnalyzeStatements(statements)
	for _, w := range result.Warnings {
		risk := core.RiskWarning
		if w.Level == LevelDanger {
			risk = core.RiskDestructive
		}
		p.MarkRisk(w.SQL, risk)
	}
	return result
}

func (a *Analyzer) analyzeNode(node ast.StmtNode, sql string) *Analysis {
	analysis := &Analysis{IsTransactionSafe: true}

	switch stmt := node.(type) {
	case *ast.DropTableStmt:
		analysis.StatementType = "DROP TABLE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP TABLE will permanently delete the table and all its data"
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = "DROP TABLE causes an implicit commit in MySQL"
	case *ast.CreateTableStmt:
		analysis.StatementType = "CREATE TABLE"
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = "CREATE TABLE causes an implicit commit in MySQL"
	case *ast.TruncateTableStmt:
		analysis.StatementType = "TRUNCATE TABLE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "TRUNCATE TABLE will delete all rows from the table"
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = "TRUNCATE TABLE causes an implicit commit in MySQL"
	case *ast.DeleteStmt:
		analysis.StatementType = "DELETE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DELETE will remove rows from the table"
		if stmt.Where == nil {
			analysis.DestructiveReason = "DELETE without WHERE will remove every row of the table"
		}
	case *ast.InsertStmt:
		analysis.StatementType = "INSERT"
		if stmt.Select != nil {
			analysis.StatementType = "INSERT ... SELECT"
		}
	case *ast.SelectStmt:
		analysis.StatementType = "SELECT"
	default:
		a.analyzeOther(analysis, sql)
	}
	return analysis
}

func (a *Analyzer) analyzeOther(analysis *Analysis, sql string) {
	analysis.StatementType = "OTHER"
	upper := strings.ToUpper(strings.TrimSpace(sql))

	for _, keyword := range implicitCommitKeywords {
		if strings.HasPrefix(upper, keyword) {
			analysis.StatementType = keyword
			analysis.IsTransactionSafe = false
			analysis.TxUnsafeReason = keyword + " causes an implicit commit in MySQL"
			break
		}
	}

	if analysis.IsTransactionSafe && (strings.HasPrefix(upper, "CREATE ") ||
		strings.HasPrefix(upper, "DROP ") ||
		strings.HasPrefix(upper, "ALTER ")) {
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = "DDL statement causes implicit commit"
	}

	if analysis.StatementType == "CREATE TRIGGER" {
		a.analyzeTriggerBody(analysis, sql)
	}
}

// analyzeTriggerBody looks at the statements between BEGIN and END. A trigger emptying a
// whole table rewrites it on every origin write.
func (a *Analyzer) analyzeTriggerBody(analysis *Analysis, sql string) {
	analysis.IsBlocking = true
	analysis.BlockingReasons = append(analysis.BlockingReasons,
		"CREATE TRIGGER adds a write to the destination for every row changed on the origin")

	for _, stmt := range triggerBody(sql) {
		nodes, _, err := a.parser.Parse(stmt, "", "")
		if err != nil || len(nodes) == 0 {
			continue
		}
		if del, ok := nodes[0].(*ast.DeleteStmt); ok && del.Where == nil {
			analysis.BlockingReasons = append(analysis.BlockingReasons,
				"trigger rewrites the whole destination table on every origin write (table has no primary key)")
			return
		}
	}
}

func triggerBody(sql string) []string {
	begin := strings.Index(sql, "\nBEGIN\n")
	end := strings.LastIndex(sql, "\nEND")
	if begin < 0 || end <= begin {
		return nil
	}
	var out []string
	for _, part := range strings.Split(sql[begin+len("\nBEGIN\n"):end], ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

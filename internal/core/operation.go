package core

// OperationKind is used to identify what kind of step is recorded in a sync plan.
type OperationKind string

const (
	OperationSQL  OperationKind = "SQL"
	OperationCopy OperationKind = "COPY"
	OperationNote OperationKind = "NOTE"
)

// OperationRisk is used to identify the risk level of an operation.
type OperationRisk string

const (
	RiskInfo        OperationRisk = "INFO"
	RiskWarning     OperationRisk = "WARNING"
	RiskDestructive OperationRisk = "DESTRUCTIVE"
)

// Endpoint tells on which side of the sync a statement runs.
type Endpoint string

const (
	EndpointOrigin      Endpoint = "origin"
	EndpointDestination Endpoint = "destination"
)

// Operation struct contains all information about a single step of a sync run.
// RollbackSQL is informational only; the sync never rolls back on its own.
type Operation struct {
	Kind     OperationKind `json:"kind"`
	Endpoint Endpoint      `json:"endpoint,omitempty"`
	Table    TableName     `json:"table,omitempty"`

	SQL         string `json:"sql,omitempty"`
	RollbackSQL string `json:"rollbackSql,omitempty"`

	Risk OperationRisk `json:"risk,omitempty"`
}

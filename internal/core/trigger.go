package core

// TriggerEvent is the DML event a replication trigger fires on.
type TriggerEvent string

const (
	TriggerInsert TriggerEvent = "insert"
	TriggerUpdate TriggerEvent = "update"
	TriggerDelete TriggerEvent = "delete"
)

// TriggerEvents returns the events in the order triggers are installed.
func TriggerEvents() []TriggerEvent {
	return []TriggerEvent{TriggerInsert, TriggerUpdate, TriggerDelete}
}

// TriggerStrategy describes how a trigger locates the rows it mirrors.
type TriggerStrategy string

const (
	// StrategyKeyed targets only the affected row through its primary key.
	StrategyKeyed TriggerStrategy = "keyed"
	// StrategyFullMirror truncates and re-copies the whole table on every change.
	StrategyFullMirror TriggerStrategy = "full-mirror"
)

// TriggerSpec is a generated CREATE TRIGGER statement for one table and event.
type TriggerSpec struct {
	Table    TableName
	Event    TriggerEvent
	Name     string
	Strategy TriggerStrategy
	SQL      string
}

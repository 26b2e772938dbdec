package sync

// State is a step of a sync run.
type State string

const (
	StateIdle                  State = "Idle"
	StateConnectingOrigin      State = "ConnectingOrigin"
	StateConnectingDestination State = "ConnectingDestination"
	StateReconciling           State = "Reconciling"
	StateCreating              State = "Creating"
	StateCopying               State = "Copying"
	StateSynthesizingTriggers  State = "SynthesizingTriggers"
	StateClosingConnections    State = "ClosingConnections"
	StateDone                  State = "Done"
	StateFailed                State = "Failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

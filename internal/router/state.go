package router

// State is the router lifecycle state.
type State string

// Router states. Transitions only move forward.
const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateTearingDown   State = "tearing_down"
	StateClosed        State = "closed"
)

// PeripheralStatus describes one owned peripheral.
type PeripheralStatus struct {
	Role    string
	Name    string
	Present bool
}

package events

// Event type constants for kelindar/event.
const (
	TypeKeyDispatched uint32 = iota + 1
	TypePeripheralError
	TypeRouterStateChanged
	TypeLEDChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// KeyDispatchedEvent is published after the router handled a key event.
type KeyDispatchedEvent struct {
	Key       string `json:"key"`
	Phase     string `json:"phase"`
	Handled   bool   `json:"handled"`
	LED       string `json:"led"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for KeyDispatchedEvent.
func (e KeyDispatchedEvent) Type() uint32 { return TypeKeyDispatched }

// PeripheralErrorEvent reports a failed operation on a hardware line.
type PeripheralErrorEvent struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Op        string `json:"op"`
	Code      string `json:"code"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for PeripheralErrorEvent.
func (e PeripheralErrorEvent) Type() uint32 { return TypePeripheralError }

// RouterStateChangedEvent is published on every router state transition.
type RouterStateChangedEvent struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for RouterStateChangedEvent.
func (e RouterStateChangedEvent) Type() uint32 { return TypeRouterStateChanged }

// LEDChangedEvent is published whenever an LED is driven to a new level,
// including the release to off at shutdown.
type LEDChangedEvent struct {
	LED       string `json:"led"`
	On        bool   `json:"on"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for LEDChangedEvent.
func (e LEDChangedEvent) Type() uint32 { return TypeLEDChanged }

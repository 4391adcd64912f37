package button

// Key is the symbolic identifier bound to a button.
type Key string

// Keys on the board.
const (
	KeyA Key = "A"
	KeyB Key = "B"
)

// Phase is the edge a key event reports.
type Phase string

// Phases.
const (
	PhaseDown Phase = "down"
	PhaseUp   Phase = "up"
)

// Event is one logical key transition. It is consumed synchronously and never
// stored.
type Event struct {
	Key   Key
	Phase Phase
}

// Sink receives key events. Implementations must not block indefinitely.
type Sink func(Event)

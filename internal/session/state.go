package session

// State is the lifecycle position of the dialogue thread.
type State int

const (
	// Idle means no turns since the last reset.
	Idle State = iota
	// Active means at least one user turn awaits a terminal response.
	Active
	// Complete is held only while a finished thread is being flushed.
	Complete
	// Shutdown is terminal.
	Shutdown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Complete:
		return "complete"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

package manager

// State is the phase of the interval currently being processed.
type State uint32

const (
	StateIdle State = iota
	StatePreparing
	StateCollecting
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateCollecting:
		return "collecting"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

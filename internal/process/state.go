package process

// State is the lifecycle state of a Handle.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Succeeded
	Failed
	Terminating
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions can happen.
func (s State) IsTerminal() bool {
	return s == Succeeded || s == Failed || s == Terminated
}

package yure

// ConnectionState is the lifecycle state of a transport Client.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
	Stopped
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// edges of the client state machine, except the "any -> Stopped" rule
var transitions = map[ConnectionState][]ConnectionState{
	Disconnected: {Connecting},
	Connecting:   {Connected, Reconnecting},
	Connected:    {Reconnecting},
	Reconnecting: {Connecting},
}

// CanTransition reports whether the client may move from one state to
// the other. Stopped is absorbing.
func CanTransition(from, to ConnectionState) bool {
	if from == Stopped {
		return false
	}
	if to == Stopped {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateEvent describes one state transition of a Client.
type StateEvent struct {
	From ConnectionState
	To   ConnectionState
	// Err is the failure which caused a transition to Reconnecting
	Err error
}

// StateListener is called on every transition, with the client lock
// held. It must not call back into the Client.
type StateListener func(event StateEvent)

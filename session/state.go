package session

// State is the session's turn-taking phase. Transitions happen only on
// the session goroutine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateWaiting
	StateSpeaking
	StateInterrupting
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateWaiting:
		return "waiting"
	case StateSpeaking:
		return "speaking"
	case StateInterrupting:
		return "interrupting"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// terminal reports whether the session can never leave this state.
func (s State) terminal() bool {
	return s == StateClosed
}

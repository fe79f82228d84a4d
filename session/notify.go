package session

// Notifier receives session events. Calls happen on the session goroutine,
// so implementations must return quickly and never call back into the
// engine.
type Notifier interface {
	StateChanged(from, to State)
	Caption(text string, final bool)
	Anomaly(detail string)
}

type nopNotifier struct{}

func (nopNotifier) StateChanged(State, State) {}
func (nopNotifier) Caption(string, bool)      {}
func (nopNotifier) Anomaly(string)            {}

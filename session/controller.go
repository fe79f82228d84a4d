package session

// Control methods are safe to call from any goroutine. They signal the Run
// loop and return immediately; none of them block on the conversation.

// Stop ends the conversation gracefully. Idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Interrupt requests a barge-in, as if voice had been detected. Ignored
// unless the agent is speaking.
func (s *Session) Interrupt() {
	select {
	case s.intCh <- struct{}{}:
	default:
	}
}

// EndTurn commits the user's utterance without waiting for the silence
// hold, push-to-talk style. Ignored unless the session is listening.
func (s *Session) EndTurn() {
	select {
	case s.endCh <- struct{}{}:
	default:
	}
}

// State returns a snapshot of the current phase. The session may have
// moved on by the time the caller looks at it.
func (s *Session) State() State {
	return State(s.published.Load())
}

// Err returns the error that terminated the session, if any. Only
// meaningful after Run has returned.
func (s *Session) Err() error {
	return s.lastErr
}

// Turns reports how many utterances the user started. Only meaningful
// after Run has returned.
func (s *Session) Turns() int64 {
	return s.userTurn
}

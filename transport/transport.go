package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed signals the connection is gone and the session must tear down.
// Anything else returned from Send/Receive is transient and safe to retry.
var ErrClosed = errors.New("transport: connection closed")

// ConnectError wraps a handshake failure. The attempt is dead but the caller
// may retry with backoff.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Channel is a duplex message channel carrying opaque wire frames.
// Implementations own framing and encryption; callers own reconnect policy.
type Channel interface {
	// Open establishes the connection. Returns *ConnectError on failure.
	Open(ctx context.Context) error

	// Send writes one message. Returns an error wrapping ErrClosed when the
	// connection is lost.
	Send(ctx context.Context, data []byte) error

	// Receive blocks for the next message until ctx is done. Returns an
	// error wrapping ErrClosed when the connection is lost.
	Receive(ctx context.Context) ([]byte, error)

	// Close tears the connection down. Safe to call more than once, and
	// before Open.
	Close() error
}

// IsLost reports whether err means the connection is unusable.
func IsLost(err error) bool {
	var ce *ConnectError
	return errors.Is(err, ErrClosed) || errors.As(err, &ce)
}
